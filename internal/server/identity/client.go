// Package identity is the Cognito user pool client used by the auth flows.
package identity

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/dmitrijs2005/authbridge/internal/server/config"
)

// cognitoAPI is the subset of the Cognito SDK client used here.
type cognitoAPI interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GetUser(ctx context.Context, in *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	AdminGetUser(ctx context.Context, in *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	AdminDeleteUser(ctx context.Context, in *cip.AdminDeleteUserInput, optFns ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig
	newCognitoClient     = func(cfg aws.Config, optFns ...func(*cip.Options)) cognitoAPI {
		return cip.NewFromConfig(cfg, optFns...)
	}
)

// SignUpResult is what the provider returns for a new identity.
type SignUpResult struct {
	SubjectID string
	Confirmed bool
}

// Tokens is a successful authentication result.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresIn    int32
}

// Client talks to one Cognito app client. It is safe for concurrent use.
type Client struct {
	api          cognitoAPI
	clientID     string
	clientSecret string
	userPoolID   string
	timeout      time.Duration
}

// NewClient builds a Client from the server configuration. The SDK retryer
// is limited to a single attempt; callers decide whether to retry.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.CognitoRegion),
	}

	// local emulators accept any signature
	if cfg.CognitoBaseEndpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	api := newCognitoClient(awsCfg, func(o *cip.Options) {
		o.RetryMaxAttempts = 1
		if cfg.CognitoBaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.CognitoBaseEndpoint)
		}
	})

	return newClient(api, cfg.CognitoClientID, cfg.CognitoClientSecret, cfg.CognitoUserPoolID, cfg.ProviderTimeout), nil
}

func newClient(api cognitoAPI, clientID, clientSecret, userPoolID string, timeout time.Duration) *Client {
	return &Client{
		api:          api,
		clientID:     clientID,
		clientSecret: clientSecret,
		userPoolID:   userPoolID,
		timeout:      timeout,
	}
}

// AdminEnabled reports whether LookupSubject and DeleteUser can be used.
func (c *Client) AdminEnabled() bool {
	return c.userPoolID != ""
}

func (c *Client) secretHash(username string) *string {
	if c.clientSecret == "" {
		return nil
	}
	return aws.String(SecretHash(c.clientSecret, c.clientID, username))
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// SignUp registers email as a new username with the name and email
// attributes.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:   aws.String(c.clientID),
		Username:   aws.String(email),
		Password:   aws.String(password),
		SecretHash: c.secretHash(email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(name)},
		},
	})
	if err != nil {
		return nil, wrapError("SignUp", err)
	}

	return &SignUpResult{
		SubjectID: aws.ToString(out.UserSub),
		Confirmed: out.UserConfirmed,
	}, nil
}

func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		SecretHash:       c.secretHash(email),
	})
	return wrapError("ConfirmSignUp", err)
}

// Authenticate runs USER_PASSWORD_AUTH. It returns nil tokens when the
// provider answered with a challenge instead of a result.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Tokens, error) {
	params := map[string]string{
		"USERNAME": email,
		"PASSWORD": password,
	}
	if h := c.secretHash(email); h != nil {
		params["SECRET_HASH"] = *h
	}

	return c.initiateAuth(ctx, "Authenticate", types.AuthFlowTypeUserPasswordAuth, params)
}

// Refresh runs REFRESH_TOKEN_AUTH. username must be the provider username
// (the subject id) because it is part of the secret hash. Cognito does not
// rotate the refresh token here, so Tokens.RefreshToken is usually empty.
func (c *Client) Refresh(ctx context.Context, refreshToken, username string) (*Tokens, error) {
	params := map[string]string{
		"REFRESH_TOKEN": refreshToken,
	}
	if h := c.secretHash(username); h != nil {
		params["SECRET_HASH"] = *h
	}

	return c.initiateAuth(ctx, "Refresh", types.AuthFlowTypeRefreshTokenAuth, params)
}

func (c *Client) initiateAuth(ctx context.Context, op string, flow types.AuthFlowType, params map[string]string) (*Tokens, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		ClientId:       aws.String(c.clientID),
		AuthFlow:       flow,
		AuthParameters: params,
	})
	if err != nil {
		return nil, wrapError(op, err)
	}

	res := out.AuthenticationResult
	if res == nil {
		return nil, nil
	}

	return &Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		IDToken:      aws.ToString(res.IdToken),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// GetUser returns the attributes of the user owning accessToken, plus the
// provider username under "username".
func (c *Client) GetUser(ctx context.Context, accessToken string) (map[string]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.api.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return nil, wrapError("GetUser", err)
	}

	attrs := attributeMap(out.UserAttributes)
	attrs["username"] = aws.ToString(out.Username)
	return attrs, nil
}

// LookupSubject returns the subject id currently bound to username.
func (c *Client) LookupSubject(ctx context.Context, username string) (string, error) {
	if !c.AdminEnabled() {
		return "", ErrAdminDisabled
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.api.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return "", wrapError("LookupSubject", err)
	}

	if sub := attributeMap(out.UserAttributes)["sub"]; sub != "" {
		return sub, nil
	}
	return aws.ToString(out.Username), nil
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	if !c.AdminEnabled() {
		return ErrAdminDisabled
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.api.AdminDeleteUser(ctx, &cip.AdminDeleteUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
	})
	return wrapError("DeleteUser", err)
}

func attributeMap(in []types.AttributeType) map[string]string {
	m := make(map[string]string, len(in)+1)
	for _, a := range in {
		m[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return m
}
