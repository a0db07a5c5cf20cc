package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	oa "github.com/panyam/tenantauth"
)

// SESAPI is the subset of the SES v2 client used here
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESDispatcher sends verification codes by email
type SESDispatcher struct {
	Client  SESAPI
	From    string
	Subject string
}

func (d *SESDispatcher) SendEmailOTP(ctx context.Context, email, code string) oa.Delivery {
	if d.Client == nil || d.From == "" {
		return oa.Failed(fmt.Errorf("ses dispatcher is not configured"))
	}
	subject := d.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	_, err := d.Client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(d.From),
		Destination:      &types.Destination{ToAddresses: []string{email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(emailBody(code)), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return oa.Failed(fmt.Errorf("ses send email: %w", err))
	}
	return oa.Delivered
}
