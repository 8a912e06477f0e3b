package rightmove

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"rightmove-scraper/models"
)

const typeAheadPath = "/typeAhead/uknostreet/"

// Location is one typeahead prediction.
type Location struct {
	Identifier  string `json:"locationIdentifier"`
	DisplayName string `json:"displayName"`
}

type typeAheadResponse struct {
	TypeAheadLocations *[]Location `json:"typeAheadLocations"`
}

// Tokenize converts a place name into the typeahead's path format: upper case,
// split into two-character chunks joined by "/". "marlow" becomes "MA/RL/OW".
func Tokenize(query string) string {
	chars := []rune(strings.ToUpper(strings.TrimSpace(query)))
	parts := make([]string, 0, (len(chars)+1)/2)
	for i := 0; i < len(chars); i += 2 {
		end := min(i+2, len(chars))
		parts = append(parts, string(chars[i:end]))
	}
	return strings.Join(parts, "/")
}

// IsLocationIdentifier reports whether s already is an identifier such as
// "REGION^916" rather than a place name.
func IsLocationIdentifier(s string) bool {
	return strings.Contains(s, "^")
}

func (c *Client) typeAheadURL(query string) string {
	tokens := strings.Split(Tokenize(query), "/")
	for i, t := range tokens {
		tokens[i] = url.PathEscape(t)
	}
	return c.origin + typeAheadPath + strings.Join(tokens, "/") + "/"
}

// Locations returns the typeahead predictions for query in relevance order.
func (c *Client) Locations(ctx context.Context, query string) ([]Location, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &models.LookupError{Query: query, Err: errors.New("empty query")}
	}

	u := c.typeAheadURL(query)
	c.logger.Debug("[rightmove] Typeahead lookup: %s", u)

	body, err := c.get(ctx, "typeahead "+query, u)
	if err != nil {
		return nil, &models.LookupError{Query: query, Err: err}
	}

	var resp typeAheadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.DecodeError{Source: "typeahead response", Err: err}
	}
	if resp.TypeAheadLocations == nil {
		return nil, &models.LookupError{Query: query, Err: errors.New("response has no typeAheadLocations")}
	}
	return *resp.TypeAheadLocations, nil
}

// ResolveLocations returns the location identifiers for query, most likely first.
func (c *Client) ResolveLocations(ctx context.Context, query string) ([]string, error) {
	locations, err := c.Locations(ctx, query)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(locations))
	for _, l := range locations {
		ids = append(ids, l.Identifier)
	}
	c.logger.Info("[rightmove] Resolved %q to %d location(s)", query, len(ids))
	return ids, nil
}
