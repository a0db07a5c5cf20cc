package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	oa "github.com/panyam/tenantauth"
)

// Options configures the AWS dispatchers
type Options struct {
	EmailFrom   string
	Subject     string
	SMSSenderID string
}

// Dispatcher routes email to Email and SMS to SMS. A nil half reports a
// failed delivery.
type Dispatcher struct {
	Email *SESDispatcher
	SMS   *SNSDispatcher
}

// New builds a Dispatcher backed by SES v2 and SNS clients created from cfg
func New(cfg aws.Config, opts Options) *Dispatcher {
	return &Dispatcher{
		Email: &SESDispatcher{Client: sesv2.NewFromConfig(cfg), From: opts.EmailFrom, Subject: opts.Subject},
		SMS:   &SNSDispatcher{Client: sns.NewFromConfig(cfg), SenderID: opts.SMSSenderID},
	}
}

func (d *Dispatcher) SendEmailOTP(ctx context.Context, email, code string) oa.Delivery {
	if d.Email == nil {
		return oa.Failed(fmt.Errorf("email delivery is not configured"))
	}
	return d.Email.SendEmailOTP(ctx, email, code)
}

func (d *Dispatcher) SendSMSOTP(ctx context.Context, phone, code string) oa.Delivery {
	if d.SMS == nil {
		return oa.Failed(fmt.Errorf("sms delivery is not configured"))
	}
	return d.SMS.SendSMSOTP(ctx, phone, code)
}
