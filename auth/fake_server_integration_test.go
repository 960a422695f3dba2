package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	fakeas "github.com/modelcontextprotocol/mcp-core/internal/testing"

	"github.com/golang-jwt/jwt/v5"
)

// TestAuthorizationCodeFlowAgainstFakeAuthServer exercises the full
// authorization-code dance (metadata discovery, PKCE-protected authorize
// redirect, code-for-token exchange) against a real, if fake, HTTP
// authorization server rather than a stubbed transport.
func TestAuthorizationCodeFlowAgainstFakeAuthServer(t *testing.T) {
	as := fakeas.NewFakeAuthServer()
	defer as.Close()

	h := &AuthorizationCodeOAuthHandler{
		PreregisteredClientConfig: &PreregisteredClientConfig{
			ClientID:     "fake-client-id",
			ClientSecret: "fake-client-secret",
		},
		RedirectURL: "https://client.example/callback",
	}

	var authURL string
	h.AuthorizationURLHandler = func(ctx context.Context, u string) error {
		authURL = u
		return nil
	}

	resourceURL := as.Issuer() + "/mcp"
	req, _ := http.NewRequest(http.MethodGet, resourceURL, nil)
	resp := &http.Response{StatusCode: http.StatusUnauthorized, Header: http.Header{}, Body: http.NoBody}

	if err := h.Authorize(context.Background(), req, resp); err != ErrRedirected {
		t.Fatalf("first Authorize() = %v, want ErrRedirected", err)
	}
	if authURL == "" {
		t.Fatal("AuthorizationURLHandler was never called")
	}

	// Simulate the user's browser following the authorization redirect: the
	// fake server grants unconditionally and redirects back to RedirectURL
	// with a code and the state we generated.
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	authResp, err := client.Get(authURL)
	if err != nil {
		t.Fatalf("GET authorization URL: %v", err)
	}
	defer authResp.Body.Close()
	if authResp.StatusCode != http.StatusFound {
		t.Fatalf("authorize response status = %d, want %d", authResp.StatusCode, http.StatusFound)
	}
	callback, err := url.Parse(authResp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parsing callback redirect: %v", err)
	}
	code := callback.Query().Get("code")
	state := callback.Query().Get("state")
	if code == "" || state == "" {
		t.Fatalf("callback redirect missing code/state: %v", callback)
	}

	if err := h.FinalizeAuthorization(code, state); err != nil {
		t.Fatalf("FinalizeAuthorization: %v", err)
	}

	resp2 := &http.Response{StatusCode: http.StatusUnauthorized, Header: http.Header{}, Body: http.NoBody}
	if err := h.Authorize(context.Background(), req, resp2); err != nil {
		t.Fatalf("second Authorize() (token exchange) = %v, want nil", err)
	}

	ts, err := h.TokenSource(context.Background())
	if err != nil {
		t.Fatalf("TokenSource: %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken == "" {
		t.Fatal("access token is empty")
	}
	if !strings.HasPrefix(tok.TokenType, "Bearer") {
		t.Errorf("token type = %q, want Bearer", tok.TokenType)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, jwt.MapClaims{})
	if err != nil {
		t.Fatalf("access token is not a well-formed JWT: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "fake-user-id" {
		t.Errorf("sub claim = %v, want fake-user-id", claims["sub"])
	}
}
