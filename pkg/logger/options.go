package logger

// settings holds Init configuration.
type settings struct {
	fileName   string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

// Option applies a configuration option to Init.
type Option func(*settings)

// WithRotatingFile duplicates log output into a size-rotated file.
// Rotated files are compressed; zero bounds fall back to the rotation
// library defaults.
func WithRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(s *settings) {
		s.fileName = path
		s.maxSizeMB = maxSizeMB
		s.maxBackups = maxBackups
		s.maxAgeDays = maxAgeDays
	}
}
