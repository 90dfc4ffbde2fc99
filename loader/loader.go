package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/shamaton/msgpack/v2"

	"haruki-const-decrypter/config"
	"haruki-const-decrypter/il"
	"haruki-const-decrypter/utils"
	harukiLogger "haruki-const-decrypter/utils/logger"
)

var ErrUnknownFormat = errors.New("unknown dump format")

var logger = harukiLogger.NewLogger("ModuleLoader", "INFO", nil)

type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

var dumpExtensions = []string{".json", ".msgpack", ".mpk"}

// FormatOf picks the dump format from a file name or URL path.
func FormatOf(name string) (Format, error) {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

func Decode(data []byte, format Format) (*il.Module, error) {
	var d ModuleDump
	var err error
	switch format {
	case FormatJSON:
		err = sonic.Unmarshal(data, &d)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &d)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s dump: %w", format, err)
	}
	return d.ToModule()
}

func Encode(module *il.Module, format Format) ([]byte, error) {
	d := FromModule(module)
	switch format {
	case FormatJSON:
		return sonic.Marshal(d)
	case FormatMsgpack:
		return msgpack.Marshal(d)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

type Loader struct {
	client   *resty.Client
	attempts int
	wait     time.Duration
}

func New(proxy string) *Loader {
	client := resty.New()
	client.
		SetRetryCount(0).
		SetTimeout(60*time.Second).
		SetTransport(&http.Transport{
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}).
		SetHeader("Accept", "application/json, application/msgpack, */*").
		SetHeader("User-Agent", "haruki-const-decrypter/"+config.Version)
	if proxy != "" {
		client.SetProxy(proxy)
	}
	return &Loader{client: client, attempts: 4, wait: time.Second}
}

// Load resolves one configured source into modules.
func (l *Loader) Load(ctx context.Context, src config.ModuleSource) ([]*il.Module, error) {
	var modules []*il.Module
	switch {
	case src.URL != "":
		m, err := l.Fetch(ctx, src.URL)
		if err != nil {
			return nil, err
		}
		modules = []*il.Module{m}
	case src.Path != "":
		info, err := os.Stat(src.Path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return LoadDir(src.Path)
		}
		m, err := LoadFile(src.Path)
		if err != nil {
			return nil, err
		}
		modules = []*il.Module{m}
	default:
		return nil, errors.New("module source has neither path nor url")
	}
	if src.Name != "" {
		modules[0].Name = src.Name
	}
	return modules, nil
}

func LoadFile(path string) (*il.Module, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	logger.Debugf("Loaded %s from %s", m.Name, path)
	return m, nil
}

// LoadDir loads every dump under dir. Unreadable dumps are skipped and
// reported together.
func LoadDir(dir string) ([]*il.Module, error) {
	files, err := utils.FindFilesByExtension(dir, dumpExtensions...)
	if err != nil {
		return nil, err
	}
	var modules []*il.Module
	var result *multierror.Error
	for _, f := range files {
		m, err := LoadFile(f)
		if err != nil {
			logger.Warnf("Skipping %s: %v", f, err)
			result = multierror.Append(result, err)
			continue
		}
		modules = append(modules, m)
	}
	return modules, result.ErrorOrNil()
}

// Fetch downloads a dump. Transport errors and 5xx answers are retried.
func (l *Loader) Fetch(ctx context.Context, url string) (*il.Module, error) {
	var lastErr error
	for attempt := 0; attempt < l.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.wait):
			}
		}
		resp, err := l.client.R().SetContext(ctx).Get(url)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode() != http.StatusOK {
			lastErr = fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
			if resp.StatusCode() < 500 {
				break
			}
			continue
		}
		format, err := formatOfResponse(url, resp.Header().Get("Content-Type"))
		if err != nil {
			return nil, err
		}
		m, err := Decode(resp.Body(), format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", url, err)
		}
		if m.Name == "" {
			m.Name = strings.TrimSuffix(filepath.Base(url), filepath.Ext(url))
		}
		logger.Infof("Fetched %s from %s", m.Name, url)
		return m, nil
	}
	return nil, lastErr
}

func formatOfResponse(url, contentType string) (Format, error) {
	switch {
	case strings.Contains(contentType, "msgpack"):
		return FormatMsgpack, nil
	case strings.Contains(contentType, "json"):
		return FormatJSON, nil
	default:
		return FormatOf(url)
	}
}
