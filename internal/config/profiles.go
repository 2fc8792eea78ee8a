package config

// DevProfile returns a development configuration: text logs, debug
// forwarding diagnostics and file watching.
func DevProfile() string {
	return `# pathproxy development profile
listen:
  host: 127.0.0.1
  port: 8080

# Ordered mapping of path pattern (regular expression) to target origin.
# The first pattern that matches anywhere in the request path wins.
routes:
  "^/api/": http://localhost:9000

proxy:
  debug: true
  change_origin: true

# Requests no route matches are served from this directory (404 when unset).
# fallback:
#   static_dir: ./public

logging:
  level: debug
  format: text

reload:
  enabled: true
  watch_file: true
  debounce: 1s
`
}

// ProdProfile returns a production configuration: JSON logs, connection
// and rate limits, gRPC health checks.
func ProdProfile() string {
	return `# pathproxy production profile
listen:
  host: 0.0.0.0
  port: 8080
  grpc_port: 8081
  max_connections: 5000
  global_rate_limit: 60000
  client_rate_limit: 600
  trusted_proxies:
    - 10.0.0.0/8

routes:
  "^/api/": https://backend.internal

proxy:
  debug: false
  change_origin: true
  timeout: 60s

upstream:
  dial_timeout: 10s
  response_header_timeout: 30s

logging:
  level: info
  format: json
  access:
    sampling_rate: 0.1
    error_sampling_rate: 1.0

shutdown:
  timeout: 30s

reload:
  enabled: true
  watch_file: false
`
}
