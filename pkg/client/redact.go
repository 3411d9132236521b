package client

import (
	"errors"
	"net/url"
	"strings"
)

const redacted = "xxxxx"

// secretParams are query keys whose values never reach the logs.
var secretParams = map[string]bool{
	"appid":   true,
	"apikey":  true,
	"api_key": true,
	"key":     true,
}

// RedactURL hides userinfo passwords and API key query values. The rest of
// the query is kept byte for byte.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.RawQuery = redactQuery(u.RawQuery)
	return c.Redacted()
}

func redactRawURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return RedactURL(u)
}

func redactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	parts := strings.Split(rawQuery, "&")
	for i, part := range parts {
		name, _, hasValue := strings.Cut(part, "=")
		if hasValue && secretParams[strings.ToLower(name)] {
			parts[i] = name + "=" + redacted
		}
	}
	return strings.Join(parts, "&")
}

// redactError rewrites the URL carried by a *url.Error, which net/http
// puts in the message of every transport failure.
func redactError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: redactRawURL(ue.URL), Err: ue.Err}
}
