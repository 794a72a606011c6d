package notify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/munilab/ai-gateway/internal/config"
)

// SESSender emails warnings through the Amazon SES v2 SendEmail API. The
// request is signed with SigV4 using the default AWS credential chain.
type SESSender struct {
	from     string
	region   string
	endpoint string
	creds    aws.CredentialsProvider
	signer   *v4.Signer
	client   *http.Client
	now      func() time.Time
}

// NewSESSender loads AWS configuration (env, shared config, instance role).
// An empty region defers to that configuration.
func NewSESSender(ctx context.Context, cfg config.SESConfig) (*SESSender, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, fmt.Errorf("ses sender requires a region")
	}
	return newSESSender(cfg.From, awsCfg.Region, "", awsCfg.Credentials, nil), nil
}

func newSESSender(from, region, endpoint string, creds aws.CredentialsProvider, client *http.Client) *SESSender {
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://email.%s.amazonaws.com", region)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SESSender{
		from:     from,
		region:   region,
		endpoint: endpoint,
		creds:    creds,
		signer:   v4.NewSigner(),
		client:   client,
		now:      time.Now,
	}
}

func (*SESSender) Name() string { return "ses" }

type sesContent struct {
	Data    string `json:"Data"`
	Charset string `json:"Charset"`
}

type sesSendEmail struct {
	FromEmailAddress string `json:"FromEmailAddress"`
	Destination      struct {
		ToAddresses []string `json:"ToAddresses"`
	} `json:"Destination"`
	Content struct {
		Simple struct {
			Subject sesContent `json:"Subject"`
			Body    struct {
				Text sesContent `json:"Text"`
			} `json:"Body"`
		} `json:"Simple"`
	} `json:"Content"`
}

// Send implements Sender.
func (s *SESSender) Send(ctx context.Context, w Warning) error {
	var msg sesSendEmail
	msg.FromEmailAddress = s.from
	msg.Destination.ToAddresses = []string{w.Email}
	msg.Content.Simple.Subject = sesContent{Data: w.Subject(), Charset: "UTF-8"}
	msg.Content.Simple.Body.Text = sesContent{Data: w.Body(), Charset: "UTF-8"}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding ses request: %w", err)
	}
	sum := sha256.Sum256(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/v2/email/outbound-emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	creds, err := s.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("retrieving aws credentials: %w", err)
	}
	if err := s.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), "ses", s.region, s.now()); err != nil {
		return fmt.Errorf("signing ses request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling ses: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, config.MaxErrorBodyLogLen))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ses returned %d: %s", resp.StatusCode, respBody)
	}
	log.Debug().Str("message_id", gjson.GetBytes(respBody, "MessageId").String()).Msg("ses accepted email")
	return nil
}
