package notify

import "fmt"

const (
	DefaultSubject = "Your verification code"
	DefaultSMSType = "Transactional"
)

func emailBody(code string) string {
	return fmt.Sprintf("Your verification code is %s.\n\nIf you did not request it, you can ignore this email.", code)
}

func smsBody(code string) string {
	return fmt.Sprintf("Your verification code is %s", code)
}
