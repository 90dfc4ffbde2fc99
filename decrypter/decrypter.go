// Package decrypter recovers the constants hidden by the protector: it ties
// detection, key extraction, the constants pool and the byte transforms
// together behind one ConstantsDecrypter per module.
package decrypter

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"haruki-const-decrypter/classifier"
	"haruki-const-decrypter/il"
	"haruki-const-decrypter/pool"
	harukiLogger "haruki-const-decrypter/utils/logger"
	"haruki-const-decrypter/version"
)

var (
	ErrResourceMissing = errors.New("encrypted constants resource not found")
	ErrNotInitialized  = errors.New("decrypter not initialized")
	ErrUnknownRoutine  = errors.New("unknown decrypt routine")
)

var logger = harukiLogger.NewLogger("ConstantsDecrypter", "INFO", nil)

type Options struct {
	Simplifier  il.Simplifier
	Concurrency int
	Extract     Extractor
}

// ConstantsDecrypter drives one module: Detect, then Initialize, then any
// number of concurrent ResolveConstant calls.
type ConstantsDecrypter struct {
	module *il.Module
	opts   Options

	detection *classifier.Detection
	detectErr error

	mu          sync.Mutex
	initialized bool
	pool        *pool.Pool
	resource    string
	infos       map[uint32]*Info
	failures    map[uint32]error
	failed      *multierror.Error
}

func New(module *il.Module, opts Options) *ConstantsDecrypter {
	if opts.Simplifier == nil {
		opts.Simplifier = il.Peephole{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	return &ConstantsDecrypter{module: module, opts: opts}
}

// Detect fingerprints the module. A negative result is not an error. Once
// Initialize has succeeded the detection is fixed and Detect only reports it.
func (d *ConstantsDecrypter) Detect() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return d.detection != nil
	}
	det, err := classifier.Detect(d.module, d.opts.Simplifier)
	if err != nil {
		d.detection = nil
		if errors.Is(err, classifier.ErrNotDetected) {
			logger.Debugf("%s: %v", d.module.Name, err)
			d.detectErr = nil
		} else {
			logger.Warnf("%s: detection failed: %v", d.module.Name, err)
			d.detectErr = err
		}
		return false
	}
	d.detection = det
	d.detectErr = nil
	return true
}

func (d *ConstantsDecrypter) Detected() bool {
	return d.Detection() != nil
}

func (d *ConstantsDecrypter) Detection() *classifier.Detection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detection
}

func (d *ConstantsDecrypter) Version() version.Version {
	det := d.Detection()
	if det == nil {
		return version.Unknown
	}
	return det.Version
}

// DetectError is the error behind the last negative Detect, nil when the
// module is simply unprotected.
func (d *ConstantsDecrypter) DetectError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detectErr
}

func (d *ConstantsDecrypter) Module() *il.Module {
	return d.module
}

// Initialize loads the constants pool and builds an Info for every decrypt
// routine. A routine whose keys cannot be extracted is recorded and only
// fails calls that target it. Calling Initialize again is a no-op.
func (d *ConstantsDecrypter) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	if d.detection == nil {
		if d.detectErr != nil {
			return d.detectErr
		}
		return fmt.Errorf("%s: %w", d.module.Name, classifier.ErrNotDetected)
	}

	name := d.detection.ResourceName
	if name == "" {
		name, _ = classifier.FindResourceName(d.detection.Initializer)
	}
	res := d.module.Resource(name)
	if res == nil {
		return fmt.Errorf("%s: resource %q: %w", d.module.Name, name, ErrResourceMissing)
	}
	p, err := pool.Inflate(res.Data)
	if err != nil {
		return fmt.Errorf("%s: %w", d.module.Name, err)
	}

	infos, failures, failed := d.discover()
	d.pool = p
	d.resource = name
	d.infos = infos
	d.failures = failures
	d.failed = failed
	d.initialized = true
	if failed != nil {
		logger.Warnf("%s: %d of %d decrypt routines unusable: %v", d.module.Name, len(failures), len(infos)+len(failures), failed)
	}
	logger.Infof("%s: %s, %d decrypt routines, %d pool bytes from %q", d.module.Name, d.detection.Version, len(infos), p.Len(), name)
	return nil
}

func (d *ConstantsDecrypter) routines() []*il.MethodDef {
	var methods []*il.MethodDef
	for _, t := range classifier.HolderTypes(d.module) {
		for _, m := range t.Methods {
			if classifier.IsDecryptShape(m) {
				methods = append(methods, m)
			}
		}
	}
	return methods
}

func (d *ConstantsDecrypter) discover() (map[uint32]*Info, map[uint32]error, *multierror.Error) {
	methods := d.routines()
	semaphore := make(chan struct{}, d.opts.Concurrency)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		infos    = make(map[uint32]*Info, len(methods))
		failures = make(map[uint32]error)
		failed   *multierror.Error
	)
	for _, m := range methods {
		wg.Add(1)
		go func(m *il.MethodDef) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			info, err := NewInfo(d.module, d.detection.Version, m, d.opts.Simplifier, d.opts.Extract)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[m.Token] = err
				failed = multierror.Append(failed, err)
				return
			}
			infos[m.Token] = info
		}(m)
	}
	wg.Wait()
	return infos, failures, failed
}

// Infos returns the usable routines ordered by token.
func (d *ConstantsDecrypter) Infos() []*Info {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := make([]*Info, 0, len(d.infos))
	for _, info := range d.infos {
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Token() < list[j].Token() })
	return list
}

// Failures aggregates the routines that could not be initialized.
func (d *ConstantsDecrypter) Failures() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failed.ErrorOrNil()
}

// RoutineErrors returns the initialization error of every unusable routine.
func (d *ConstantsDecrypter) RoutineErrors() map[uint32]error {
	d.mu.Lock()
	defer d.mu.Unlock()
	errs := make(map[uint32]error, len(d.failures))
	for token, err := range d.failures {
		errs[token] = err
	}
	return errs
}

func (d *ConstantsDecrypter) ResourceName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resource
}

func (d *ConstantsDecrypter) info(token uint32) (*Info, *pool.Pool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil, nil, ErrNotInitialized
	}
	if err, ok := d.failures[token]; ok {
		return nil, nil, err
	}
	info, ok := d.infos[token]
	if !ok {
		return nil, nil, fmt.Errorf("token 0x%08X: %w", token, ErrUnknownRoutine)
	}
	return info, d.pool, nil
}

// ResolveConstant decrypts the constant loaded by "ldc a0; ldc a1; call
// routine" where token identifies the routine.
func (d *ConstantsDecrypter) ResolveConstant(token, a0, a1 uint32) (pool.TypeCode, []byte, error) {
	info, p, err := d.info(token)
	if err != nil {
		return 0, nil, err
	}
	offset := info.Offset(a0, a1)
	entry, err := p.ReadEntry(offset)
	if err != nil {
		return 0, nil, fmt.Errorf("routine 0x%08X (%d, %d): %w", token, a0, a1, err)
	}
	plain, err := info.Decrypt(entry)
	if err != nil {
		return 0, nil, fmt.Errorf("routine 0x%08X (%d, %d): %w", token, a0, a1, err)
	}
	return entry.TypeCode, plain, nil
}

// Resolve is ResolveConstant followed by DecodeConstant.
func (d *ConstantsDecrypter) Resolve(token, a0, a1 uint32) (Constant, error) {
	tc, plain, err := d.ResolveConstant(token, a0, a1)
	if err != nil {
		return Constant{}, err
	}
	return DecodeConstant(tc, plain)
}

// IsRoutine reports whether token names a decrypt routine found by
// Initialize, usable or not.
func (d *ConstantsDecrypter) IsRoutine(token uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.infos[token]; ok {
		return true
	}
	_, ok := d.failures[token]
	return ok
}

// Open detects and initializes module in one step. An unprotected module
// returns a nil decrypter and a nil error.
func Open(module *il.Module, opts Options) (*ConstantsDecrypter, error) {
	d := New(module, opts)
	if !d.Detect() {
		return nil, d.DetectError()
	}
	if err := d.Initialize(); err != nil {
		return nil, err
	}
	return d, nil
}
