package milvus

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Options holds Milvus connection settings.
type Options struct {
	Address  string        `json:"address" mapstructure:"address"`
	Database string        `json:"database" mapstructure:"database"`
	Username string        `json:"username" mapstructure:"username"`
	Password string        `json:"password" mapstructure:"password"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions returns default Milvus options.
func NewOptions() *Options {
	return &Options{
		Address:  "localhost:19530",
		Database: "default",
		Timeout:  10 * time.Second,
	}
}

// Validate checks the options.
func (o *Options) Validate() []error {
	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("milvus address must not be empty"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("milvus timeout must be positive"))
	}
	return errs
}

// AddFlags binds the options to a flag set.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Address, "milvus.address", o.Address, "Milvus server address.")
	fs.StringVar(&o.Database, "milvus.database", o.Database, "Milvus database name.")
	fs.StringVar(&o.Username, "milvus.username", o.Username, "Milvus username.")
	fs.StringVar(&o.Password, "milvus.password", o.Password, "Milvus password.")
	fs.DurationVar(&o.Timeout, "milvus.timeout", o.Timeout, "Milvus connect timeout.")
}
