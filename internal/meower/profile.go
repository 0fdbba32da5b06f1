package meower

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type userProfile struct {
	Avatar  string `json:"avatar"`
	PFPData int    `json:"pfp_data"`
}

// ProfilePicture returns the profile picture reference for a Meower user,
// preferring the uploaded avatar id over the legacy numeric pfp. Results
// are cached for the life of the client; profile changes mid-session keep
// the old reference, which only affects masquerade avatars.
func (c *Client) ProfilePicture(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("username is required")
	}

	c.profileMu.Lock()
	cached, ok := c.profiles[username]
	c.profileMu.Unlock()
	if ok {
		return cached, nil
	}

	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + "/users/" + url.PathEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch profile: unexpected status %d", resp.StatusCode)
	}

	var profile userProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("decode profile: %w", err)
	}

	ref := strings.TrimSpace(profile.Avatar)
	if ref == "" {
		ref = strconv.Itoa(profile.PFPData)
	}
	c.profileMu.Lock()
	c.profiles[username] = ref
	c.profileMu.Unlock()
	return ref, nil
}
