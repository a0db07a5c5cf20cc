// Package notify delivers one-time codes through AWS. SESDispatcher sends
// email through SES v2, SNSDispatcher sends SMS through SNS, and
// Dispatcher joins the two into a tenantauth.Dispatcher.
//
// # Usage
//
//	cfg, _ := awsconfig.LoadDefaultConfig(ctx)
//	d := notify.New(cfg, notify.Options{EmailFrom: "no-reply@example.com"})
//	registrar.Dispatcher = d
//	registrar.FormatPhone = notify.E164("US")
package notify
