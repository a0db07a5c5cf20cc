package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	oa "github.com/panyam/tenantauth"
)

// SNSAPI is the subset of the SNS client used here
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSDispatcher sends verification codes by SMS. Phone numbers must
// already be in E.164 form.
type SNSDispatcher struct {
	Client   SNSAPI
	SenderID string
}

func (d *SNSDispatcher) SendSMSOTP(ctx context.Context, phone, code string) oa.Delivery {
	if d.Client == nil {
		return oa.Failed(fmt.Errorf("sns dispatcher is not configured"))
	}
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String(DefaultSMSType)},
	}
	if d.SenderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(d.SenderID)}
	}
	_, err := d.Client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(phone),
		Message:           aws.String(smsBody(code)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return oa.Failed(fmt.Errorf("sns publish: %w", err))
	}
	return oa.Delivered
}
