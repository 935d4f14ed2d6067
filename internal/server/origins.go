package server

import (
	"net/url"
)

// originHosts turns CORS origins ("https://app.example.com") into the host
// patterns the websocket upgrade checks against ("app.example.com").
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
