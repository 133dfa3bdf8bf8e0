// Package config loads surfacestream configuration.
//
// Configuration is built in layers: built-in defaults, then each file added
// with AddLayer in order, then SURFACESTREAM_* environment variables. Files
// may be JSON or YAML; a layer only overrides the keys it names, so a small
// override file can sit on top of a complete base file.
//
//	loader := config.NewLoader()
//	loader.AddLayer("surfacestream.yaml")
//	loader.AddLayer("local.json")
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Durations are written as Go duration strings ("500ms", "30s").
//
// # Environment overrides
//
//	SURFACESTREAM_LOG_LEVEL              log.level
//	SURFACESTREAM_LOG_FORMAT             log.format
//	SURFACESTREAM_STREAM_MAX_LINE_BYTES  stream.max_line_bytes
//	SURFACESTREAM_METRICS_PORT           metrics.port (enables metrics)
//	SURFACESTREAM_INPUT_TYPE             input.type
//	SURFACESTREAM_INPUT_PATH             input.path
//	SURFACESTREAM_INPUT_URL              input.url
//	SURFACESTREAM_NATS_URL               input.nats.url
//	SURFACESTREAM_NATS_SUBJECT           input.nats.subject
//	SURFACESTREAM_UDP_PORT               input.udp.port
//	SURFACESTREAM_BROADCAST_PORT         broadcast.port (enables broadcast)
package config
