package chi

import "github.com/go-chi/cors"

// CORSOptions allows browser clients served from origins, e.g. a dev UI
// on another port. A "*" origin disables credentials, which browsers
// reject together with a wildcard.
func CORSOptions(origins []string) cors.Options {
	allowCreds := true
	for _, o := range origins {
		if o == "*" {
			allowCreds = false
			break
		}
	}

	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}
