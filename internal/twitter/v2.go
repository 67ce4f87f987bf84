package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	gotwitter "github.com/dghubble/go-twitter/twitter"
)

const (
	tweetsV2URL  = "https://api.twitter.com/2/tweets"
	usersMeV2URL = "https://api.twitter.com/2/users/me"
)

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type deleteResponse struct {
	Data struct {
		Deleted bool `json:"deleted"`
	} `json:"data"`
}

type usersMeResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

// v2 problem document.
type apiProblem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// v1.1 errors array.
type apiV1Errors struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// diagnoseAPIError extracts a readable message from a v2 problem
// document or a v1.1 errors array, falling back to the raw body.
func diagnoseAPIError(statusCode int, body []byte) string {
	var problem apiProblem
	if err := json.Unmarshal(body, &problem); err == nil && problem.Title != "" {
		return fmt.Sprintf("status %d: %s: %s", statusCode, problem.Title, problem.Detail)
	}

	var v1 apiV1Errors
	if err := json.Unmarshal(body, &v1); err == nil && len(v1.Errors) > 0 {
		return fmt.Sprintf("status %d: code %d: %s", statusCode, v1.Errors[0].Code, v1.Errors[0].Message)
	}

	return fmt.Sprintf("status %d: %s", statusCode, string(body))
}

func createTweetV2(ctx context.Context, client *http.Client, text string) (string, error) {
	body, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return "", &DispatchError{Op: "POST /2/tweets", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tweetsV2URL, bytes.NewReader(body))
	if err != nil {
		return "", &DispatchError{Op: "POST /2/tweets", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", &DispatchError{Op: "POST /2/tweets", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &DispatchError{Op: "POST /2/tweets", Err: err}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &DispatchError{Op: "POST /2/tweets", Err: errors.New(diagnoseAPIError(resp.StatusCode, respBody))}
	}

	var tweet tweetResponse
	if err := json.Unmarshal(respBody, &tweet); err != nil {
		return "", &DispatchError{Op: "POST /2/tweets", Err: fmt.Errorf("parse response: %w", err)}
	}
	if tweet.Data.ID == "" {
		return "", &DispatchError{Op: "POST /2/tweets", Err: errors.New("response missing tweet id")}
	}
	return tweet.Data.ID, nil
}

func deleteTweetV2(ctx context.Context, client *http.Client, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, tweetsV2URL+"/"+id, nil)
	if err != nil {
		return &DispatchError{Op: "DELETE /2/tweets", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &DispatchError{Op: "DELETE /2/tweets", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &DispatchError{Op: "DELETE /2/tweets", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &DispatchError{Op: "DELETE /2/tweets", Err: errors.New(diagnoseAPIError(resp.StatusCode, respBody))}
	}

	var deleted deleteResponse
	if err := json.Unmarshal(respBody, &deleted); err != nil {
		return &DispatchError{Op: "DELETE /2/tweets", Err: fmt.Errorf("parse response: %w", err)}
	}
	if !deleted.Data.Deleted {
		return &DispatchError{Op: "DELETE /2/tweets", Err: errors.New("api reported tweet not deleted")}
	}
	return nil
}

// verifyCredentials confirms the session's credentials against the
// remote API and returns the account name, using whichever endpoint
// matches the session's version.
func verifyCredentials(ctx context.Context, client *http.Client, version APIVersion) (string, error) {
	if version == V2 {
		return verifyCredentialsV2(ctx, client)
	}

	user, _, err := gotwitter.NewClient(client).Accounts.VerifyCredentials(&gotwitter.AccountVerifyParams{})
	if err != nil {
		return "", err
	}
	return user.ScreenName, nil
}

func verifyCredentialsV2(ctx context.Context, client *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, usersMeV2URL, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(diagnoseAPIError(resp.StatusCode, respBody))
	}

	var me usersMeResponse
	if err := json.Unmarshal(respBody, &me); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return me.Data.Username, nil
}
