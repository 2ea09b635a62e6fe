package send

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
)

// NewSESClient builds a regional SES client from the default credential
// chain. The returned client satisfies Mailer, QuotaFetcher, and the stats
// collector's fetcher contract.
func NewSESClient(region string) (*ses.SES, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("send: new aws session: %w", err)
	}
	return ses.New(sess), nil
}
