package creds

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dghubble/oauth1"
	twauth "github.com/dghubble/oauth1/twitter"
)

// AuthorizationError reports a failure in the three-legged OAuth flow.
type AuthorizationError struct {
	Step string
	Err  error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization: %s: %v", e.Step, e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// Authorizer runs the interactive three-legged OAuth flow that exchanges
// a consumer pair for a user access pair. The flow blocks on operator
// input with no timeout and must not be invoked by non-interactive
// callers.
type Authorizer struct {
	ConsumerKey    string
	ConsumerSecret string

	// AccessPath is the file the access pair may be persisted to.
	AccessPath string

	// Endpoint defaults to the Twitter OAuth1 endpoints.
	Endpoint oauth1.Endpoint

	// In and Out carry the operator dialogue. They default to stdin and
	// stdout.
	In  io.Reader
	Out io.Writer
}

// Run obtains a request token, prints the authorization URL, blocks for
// the PIN shown to the operator in the browser, exchanges it for an
// access pair and optionally persists the pair to AccessPath.
func (a *Authorizer) Run() (*Credentials, error) {
	in := a.In
	if in == nil {
		in = os.Stdin
	}
	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	endpoint := a.Endpoint
	if endpoint.RequestTokenURL == "" {
		endpoint = twauth.AuthorizeEndpoint
	}

	config := oauth1.Config{
		ConsumerKey:    a.ConsumerKey,
		ConsumerSecret: a.ConsumerSecret,
		CallbackURL:    "oob",
		Endpoint:       endpoint,
	}

	requestToken, requestSecret, err := config.RequestToken()
	if err != nil {
		return nil, &AuthorizationError{Step: "request token", Err: err}
	}

	authorizationURL, err := config.AuthorizationURL(requestToken)
	if err != nil {
		return nil, &AuthorizationError{Step: "authorization url", Err: err}
	}

	fmt.Fprintf(out, "Authorization URL: %s\n", authorizationURL.String())
	fmt.Fprint(out, "PIN: ")

	reader := bufio.NewReader(in)
	pin, err := reader.ReadString('\n')
	if err != nil && pin == "" {
		return nil, &AuthorizationError{Step: "read pin", Err: err}
	}
	pin = strings.TrimSpace(pin)

	accessToken, accessSecret, err := config.AccessToken(requestToken, requestSecret, pin)
	if err != nil {
		return nil, &AuthorizationError{Step: "access token exchange", Err: err}
	}

	slog.Info("access token generated")

	if err := a.maybePersist(reader, out, accessToken, accessSecret); err != nil {
		return nil, err
	}

	return &Credentials{
		ConsumerKey:    a.ConsumerKey,
		ConsumerSecret: a.ConsumerSecret,
		AccessToken:    accessToken,
		AccessSecret:   accessSecret,
	}, nil
}

func (a *Authorizer) maybePersist(reader *bufio.Reader, out io.Writer, token, secret string) error {
	if a.AccessPath == "" {
		return nil
	}

	if fileExists(a.AccessPath) {
		fmt.Fprintf(out, "overwrite %s [y/N]: ", a.AccessPath)
		answer, _ := reader.ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Fprintln(out, "using the access token without overwriting the file")
			return nil
		}
	}

	return WriteAccessFile(a.AccessPath, token, secret)
}

// WriteAccessFile persists an access pair as pretty-printed JSON in the
// documented access file schema.
func WriteAccessFile(path, token, secret string) error {
	doc := map[string]string{
		"ACCESS_TOKEN":  token,
		"ACCESS_SECRET": secret,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &AuthorizationError{Step: "encode access file", Err: err}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return &AuthorizationError{Step: "write access file", Err: err}
	}
	slog.Info("access credentials written", "path", path)
	return nil
}
