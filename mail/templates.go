package mail

import (
	"fmt"
	"time"
)

func VerificationMessage(appName, to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s: verify your email", appName),
		Body: fmt.Sprintf("Your verification code is %s\n\nIt expires in %s. If you did not create an account you can ignore this email.\n",
			code, ttl.Round(time.Minute)),
	}
}

func PasswordResetMessage(appName, to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s: password reset", appName),
		Body: fmt.Sprintf("Your password reset code is %s\n\nIt expires in %s. If you did not ask to reset your password you can ignore this email.\n",
			code, ttl.Round(time.Minute)),
	}
}
