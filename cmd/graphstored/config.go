package main

// Config is what viper resolves down to before anything else in this binary
// runs. Only DatabaseURL and SnapshotChunkSize are core per the request
// surface's bootstrap contract; everything else is carried because the
// teacher's own service always carries a log level, a listen address, and
// optional cache/notification endpoints, not because any library package
// reads them directly.
type Config struct {
	DatabaseURL       string
	SnapshotChunkSize int

	LogLevel  string
	LogFormat string
	HTTPAddr  string
	RedisURL  string
	AMQPURL   string
}

func (c Config) snapshotOptionsChunkSize() int {
	if c.SnapshotChunkSize <= 0 {
		return 500
	}
	return c.SnapshotChunkSize
}
