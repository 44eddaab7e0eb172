// Package logger provides the leveled, component-tagged logger used across
// the gateway and channel code. Messages carry a component tag and an
// optional structured field map.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	mu    sync.Mutex
	level = INFO
	out   io.Writer = os.Stderr
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetOutput redirects log output. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func log(l Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s [%s] %s",
		time.Now().Format("2006-01-02 15:04:05"), l, component, msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	fmt.Fprintln(out, b.String())
}

func DebugC(component, msg string)                    { log(DEBUG, component, msg, nil) }
func DebugCF(component, msg string, f map[string]any) { log(DEBUG, component, msg, f) }
func InfoC(component, msg string)                     { log(INFO, component, msg, nil) }
func InfoCF(component, msg string, f map[string]any)  { log(INFO, component, msg, f) }
func WarnC(component, msg string)                     { log(WARN, component, msg, nil) }
func WarnCF(component, msg string, f map[string]any)  { log(WARN, component, msg, f) }
func ErrorC(component, msg string)                    { log(ERROR, component, msg, nil) }
func ErrorCF(component, msg string, f map[string]any) { log(ERROR, component, msg, f) }
