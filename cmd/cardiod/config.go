package main

import (
	"fmt"
	"os"

	"github.com/datamonsterr/Cardio-sub000/internal/config"
	"github.com/datamonsterr/Cardio-sub000/internal/fileutil"
)

// ConfigCmd groups configuration helpers.
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a commented starter configuration"`
}

// ConfigInitCmd writes the example config, refusing to clobber an existing
// file unless forced.
type ConfigInitCmd struct {
	Path  string `kong:"default='cardio.hcl',help='Where to write the configuration'"`
	Force bool   `kong:"help='Overwrite an existing file'"`
}

func (c *ConfigInitCmd) Run() error {
	if !c.Force {
		if _, err := os.Stat(c.Path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", c.Path)
		}
	}
	if err := fileutil.WriteFileAtomic(c.Path, []byte(config.Example), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", c.Path)
	return nil
}
