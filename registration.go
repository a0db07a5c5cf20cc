package tenantauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var (
	errNoDispatcher        = errors.New("no notification dispatcher configured")
	errConsoleInProduction = errors.New("console dispatcher does not deliver codes in production")
)

// RegistrationRequest is the send-otp payload.
type RegistrationRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// Registrar runs the pending registration / OTP state machine and the
// direct and password-login paths that share its user store.
type Registrar struct {
	Store RegistrationStore

	// Dispatcher delivers codes. A nil Dispatcher counts as a failed delivery.
	Dispatcher Dispatcher

	// Syncer receives AccountCreated events. Optional.
	Syncer AccountSyncer

	// Production disables the local-log fallback for failed email delivery.
	Production bool

	// OTPTTL defaults to OTPExpiry
	OTPTTL time.Duration

	// FormatPhone converts a user supplied phone number into the form the SMS
	// provider expects. Numbers it rejects are not texted.
	FormatPhone func(phone string) (string, error)

	// Test hooks
	Clock        func() time.Time
	GenerateCode func() (string, error)

	Logger *slog.Logger
}

func (r *Registrar) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

func (r *Registrar) ttl() time.Duration {
	if r.OTPTTL > 0 {
		return r.OTPTTL
	}
	return OTPExpiry
}

func (r *Registrar) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Registrar) newCode() (string, error) {
	if r.GenerateCode != nil {
		return r.GenerateCode()
	}
	return GenerateOTP()
}

// RequestRegistration validates a signup, records it as pending and sends a
// fresh code, replacing any earlier pending state for the same email. It is
// also the resend operation.
func (r *Registrar) RequestRegistration(ctx context.Context, req RegistrationRequest) error {
	email := NormalizeEmail(req.Email)
	if authErr := ValidateCredentials(Credentials{Name: req.Name, Email: email, Password: req.Password}); authErr != nil {
		return authErr
	}
	if authErr := r.ensureEmailFree(ctx, email); authErr != nil {
		return authErr
	}

	code, err := r.newCode()
	if err != nil {
		return &AuthError{Kind: KindPersistence, Code: ErrCodePersistenceFailed, Message: "Failed to generate verification code", Err: err}
	}

	now := r.now()
	pending := &PendingRegistration{
		Name:      req.Name,
		Email:     email,
		Password:  req.Password,
		Phone:     req.Phone,
		CreatedAt: now,
	}
	if err := r.Store.PutPendingRegistration(ctx, pending); err != nil {
		r.logger().Error("failed to store pending registration", "email", email, "error", err)
		return storeError(err)
	}
	otp := &PendingOtp{Email: email, Code: code, ExpiresAt: now.Add(r.ttl())}
	if err := r.Store.PutPendingOtp(ctx, otp); err != nil {
		r.logger().Error("failed to store pending otp", "email", email, "error", err)
		return storeError(err)
	}

	emailResult := r.sendEmail(ctx, email, code)
	if req.Phone != "" {
		r.sendSMS(ctx, req.Phone, code)
	}

	if !emailResult.Sent {
		if r.Production {
			r.logger().Error("verification email not sent", "email", email, "error", emailResult.Err)
			return errDispatchFailed(emailResult.Err)
		}
		r.logger().Warn("verification email not sent, using local fallback",
			"email", email, "code", code, "error", emailResult.Err)
	}
	return nil
}

func (r *Registrar) sendEmail(ctx context.Context, email, code string) Delivery {
	if r.Dispatcher == nil {
		return Failed(errNoDispatcher)
	}
	// the console only logs, which is the development fallback
	if _, ok := r.Dispatcher.(*ConsoleDispatcher); ok && r.Production {
		return Failed(errConsoleInProduction)
	}
	return r.Dispatcher.SendEmailOTP(ctx, email, code)
}

// sendSMS is best effort; failures are only logged.
func (r *Registrar) sendSMS(ctx context.Context, phone, code string) {
	if r.Dispatcher == nil {
		return
	}
	if r.FormatPhone != nil {
		formatted, err := r.FormatPhone(phone)
		if err != nil {
			r.logger().Warn("skipping sms for unparseable phone", "phone", phone, "error", err)
			return
		}
		phone = formatted
	}
	if d := r.Dispatcher.SendSMSOTP(ctx, phone, code); !d.Sent {
		r.logger().Warn("verification sms not sent", "phone", phone, "error", d.Err)
	}
}

// VerifyOTP confirms a pending registration and creates the user. It does not
// issue a session; clients sign in through the login endpoint afterwards.
func (r *Registrar) VerifyOTP(ctx context.Context, email, code string) (*User, error) {
	email = NormalizeEmail(email)
	now := r.now()

	otp, err := r.Store.GetPendingOtp(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, errNoPendingCode()
	} else if err != nil {
		return nil, storeError(err)
	}

	if otp.IsExpired(now) {
		// the pending registration stays so a resend can reuse it
		if err := r.Store.DeletePendingOtp(ctx, email); err != nil {
			return nil, storeError(err)
		}
		return nil, errCodeExpired()
	}

	// wrong codes leave everything in place; there is no attempt counter
	if code != otp.Code {
		return nil, errCodeMismatch()
	}

	pending, err := r.Store.GetPendingRegistration(ctx, email)
	if errors.Is(err, ErrNotFound) {
		if err := r.Store.DeletePendingOtp(ctx, email); err != nil {
			r.logger().Warn("failed to delete stray otp", "email", email, "error", err)
		}
		return nil, errRegistrationExpired()
	} else if err != nil {
		return nil, storeError(err)
	}

	hash, err := HashPassword(pending.Password)
	if err != nil {
		return nil, storeError(err)
	}
	user := &User{
		ID:           NewUserID(now),
		Name:         pending.Name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := r.Store.PromotePendingRegistration(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, errEmailTaken()
		}
		r.logger().Error("failed to promote pending registration", "email", email, "error", err)
		return nil, storeError(err)
	}

	r.logger().Info("user created from verified registration", "email", email, "id", user.ID)
	r.announce(ctx, user, pending.Password)
	return user, nil
}

// Register creates a user directly, without an OTP round trip.
func (r *Registrar) Register(ctx context.Context, creds Credentials) (*User, error) {
	creds.Email = NormalizeEmail(creds.Email)
	if authErr := ValidateCredentials(creds); authErr != nil {
		return nil, authErr
	}
	if authErr := r.ensureEmailFree(ctx, creds.Email); authErr != nil {
		return nil, authErr
	}

	hash, err := HashPassword(creds.Password)
	if err != nil {
		return nil, storeError(err)
	}
	now := r.now()
	user := &User{
		ID:           NewUserID(now),
		Name:         creds.Name,
		Email:        creds.Email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := r.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, errEmailTaken()
		}
		return nil, storeError(err)
	}
	r.announce(ctx, user, creds.Password)
	return user, nil
}

// Authenticate checks an email/password pair against the stored hash.
func (r *Registrar) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, NewAuthError(ErrCodeEmptyField, "Email is required", "email")
	}
	if password == "" {
		return nil, NewAuthError(ErrCodeEmptyField, "Password is required", "password")
	}

	user, err := r.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, errInvalidCredentials()
	} else if err != nil {
		return nil, storeError(err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials()
	}
	return user, nil
}

// DeleteAccount removes the user and any pending state for email. It backs
// the development reset endpoint only.
func (r *Registrar) DeleteAccount(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return NewAuthError(ErrCodeEmptyField, "Email is required", "email")
	}
	if err := r.Store.DeleteUser(ctx, email); err != nil {
		return storeError(err)
	}
	if err := r.Store.DeletePendingRegistration(ctx, email); err != nil {
		return storeError(err)
	}
	if err := r.Store.DeletePendingOtp(ctx, email); err != nil {
		return storeError(err)
	}
	r.logger().Info("deleted account", "email", email)
	return nil
}

func (r *Registrar) ensureEmailFree(ctx context.Context, email string) *AuthError {
	_, err := r.Store.GetUserByEmail(ctx, email)
	if err == nil {
		return errEmailTaken()
	}
	if !errors.Is(err, ErrNotFound) {
		return storeError(err)
	}
	return nil
}

// announce hands the new account to the syncer. Failures never reach the caller.
func (r *Registrar) announce(ctx context.Context, user *User, password string) {
	if r.Syncer == nil {
		return
	}
	event := AccountCreated{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Password:  password,
		CreatedAt: user.CreatedAt,
	}
	if err := r.Syncer.EnqueueAccountCreated(ctx, event); err != nil {
		r.logger().Warn("failed to enqueue account sync", "email", user.Email, "error", err)
	}
}
