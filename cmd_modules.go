package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"haruki-const-decrypter/config"
	"haruki-const-decrypter/decrypter"
	"haruki-const-decrypter/il"
	"haruki-const-decrypter/loader"
)

// sources turns command arguments into module sources. Without arguments
// the configured modules are used.
func sources(args []string) []config.ModuleSource {
	if len(args) == 0 {
		return config.Cfg.Modules
	}
	var srcs []config.ModuleSource
	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			srcs = append(srcs, config.ModuleSource{URL: arg})
		} else {
			srcs = append(srcs, config.ModuleSource{Path: arg})
		}
	}
	return srcs
}

func loadModules(ctx context.Context, srcs []config.ModuleSource) ([]*il.Module, error) {
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no modules given and none configured")
	}
	l := loader.New(config.Cfg.Proxy)
	var modules []*il.Module
	var result *multierror.Error
	for _, src := range srcs {
		ms, err := l.Load(ctx, src)
		if err != nil {
			result = multierror.Append(result, err)
		}
		modules = append(modules, ms...)
	}
	if len(modules) == 0 {
		if err := result.ErrorOrNil(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("no module dumps found")
	}
	if err := result.ErrorOrNil(); err != nil {
		mainLogger.Warnf("Some modules failed to load: %v", err)
	}
	return modules, nil
}

func decrypterOptions() decrypter.Options {
	return decrypter.Options{Concurrency: config.Cfg.ConcurrentDecrypters}
}
