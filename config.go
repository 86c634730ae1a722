package opentsdb

import "github.com/SStar1314/opentsdb/rowkey"

// Config holds the process-lifetime knobs the query core needs. Identifier
// widths come from the intern service at startup (they are constant for
// the life of the process, per spec §6) and are cached here rather than
// re-queried on every query.
type Config struct {
	// FlagBits is F: the number of low bits in a cell qualifier reserved
	// for value-type flags. MaxTimespan = 2^(16-FlagBits).
	FlagBits uint `yaml:"flag_bits"`

	// Schema carries the intern service's fixed identifier widths.
	Schema rowkey.Schema `yaml:"-"`

	// ScanChunkRows is a row-read chunk size for the store scanner. It is
	// carried in the configuration only: the scan executor does not read
	// it and scan.Store.Scan takes no chunk size, so it has no effect on
	// how rows are fetched.
	ScanChunkRows int `yaml:"scan_chunk_rows"`
}

// DefaultConfig returns the configuration used by the worked examples in
// spec §8 scenario 1: W_m=W_n=W_v=3, FLAG_BITS=4 (MAX_TIMESPAN=4096).
func DefaultConfig() *Config {
	return &Config{
		FlagBits: 4,
		Schema: rowkey.Schema{
			WidthMetric: 3,
			WidthName:   3,
			WidthValue:  3,
		},
		ScanChunkRows: 1000,
	}
}
