package tenantauth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptInput digests the password so bcrypt sees a fixed 44 bytes. bcrypt
// rejects inputs over 72 bytes and signup puts no upper bound on length.
func bcryptInput(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// HashPassword returns the bcrypt hash stored on User records.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches a hash from HashPassword.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password)) == nil
}

// maxBodyBytes bounds request bodies read by the auth handlers.
const maxBodyBytes = 1 << 20

// parseFields reads the named string fields from a JSON or urlencoded body.
// Missing fields come back as empty strings.
func parseFields(r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") || strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("error parsing form")
		}
		for _, name := range names {
			out[name] = r.FormValue(name)
		}
		return out, nil
	}

	var data map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(&data); err != nil || data == nil {
		return nil, fmt.Errorf("invalid post body")
	}
	for _, name := range names {
		if v, ok := data[name].(string); ok {
			out[name] = v
		}
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// writeAuthError renders err through handler if it claims it, else as JSON.
func writeAuthError(handler AuthErrorHandler, err *AuthError, w http.ResponseWriter, r *http.Request) {
	if handler != nil && handler(err, w, r) {
		return
	}
	body := map[string]any{
		"error": err.Message,
		"code":  err.Code,
	}
	if err.Field != "" {
		body["field"] = err.Field
	}
	if err.Retryable {
		body["retryable"] = true
	}
	writeJSON(w, err.StatusCode(), body)
}
