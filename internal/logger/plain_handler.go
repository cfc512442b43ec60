/*
 * MIT License
 *
 * Copyright (c) 2025 Roberto Leinardi
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// plainTextHandler writes one line per record:
//
//	level=INFO poll finished containers=12 services=3
//
// With includeTime the line starts with time=<RFC3339Nano>.
type plainTextHandler struct {
	outputWriter io.Writer
	leveler      slog.Leveler
	includeTime  bool

	prefixAttributes []slog.Attr
	groups           []string

	// shared by copies made in WithAttrs/WithGroup
	mutex *sync.Mutex
}

func newPlainTextHandler(output io.Writer, level slog.Leveler, includeTime bool) *plainTextHandler {
	if output == nil {
		output = os.Stdout
	}

	if level == nil {
		level = slog.LevelInfo
	}

	return &plainTextHandler{
		outputWriter: output,
		leveler:      level,
		includeTime:  includeTime,
		mutex:        &sync.Mutex{},
	}
}

func (handler *plainTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.leveler.Level()
}

//nolint:gocritic // slog.Handler requires slog.Record by value.
func (handler *plainTextHandler) Handle(_ context.Context, record slog.Record) error {
	var buffer bytes.Buffer

	if handler.includeTime && !record.Time.IsZero() {
		buffer.WriteString("time=")
		buffer.WriteString(record.Time.Format(time.RFC3339Nano))
		buffer.WriteByte(' ')
	}

	buffer.WriteString("level=")
	buffer.WriteString(levelName(record.Level))

	if record.Message != "" {
		buffer.WriteByte(' ')
		buffer.WriteString(record.Message)
	}

	for index := range handler.prefixAttributes {
		writeAttribute(&buffer, handler.groups, handler.prefixAttributes[index])
	}

	record.Attrs(func(attribute slog.Attr) bool {
		writeAttribute(&buffer, handler.groups, attribute)

		return true
	})

	buffer.WriteByte('\n')

	handler.mutex.Lock()
	_, writeErr := handler.outputWriter.Write(buffer.Bytes())
	handler.mutex.Unlock()

	if writeErr != nil {
		return fmt.Errorf("plain handler write: %w", writeErr)
	}

	return nil
}

func (handler *plainTextHandler) WithAttrs(attributes []slog.Attr) slog.Handler {
	if len(attributes) == 0 {
		return handler
	}

	copyHandler := *handler
	copyHandler.prefixAttributes = append(
		append([]slog.Attr(nil), handler.prefixAttributes...),
		attributes...)

	return &copyHandler
}

func (handler *plainTextHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return handler
	}

	copyHandler := *handler
	copyHandler.groups = append(append([]string(nil), handler.groups...), name)

	return &copyHandler
}

func levelName(levelValue slog.Level) string {
	switch {
	case levelValue <= slog.LevelDebug:
		return "DEBUG"
	case levelValue < slog.LevelWarn:
		return "INFO"
	case levelValue < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// writeAttribute emits " key=value", prefixing the key with any open groups.
// Group values are flattened into dotted keys.
func writeAttribute(buffer *bytes.Buffer, groups []string, attribute slog.Attr) {
	attribute.Value = attribute.Value.Resolve()
	if attribute.Equal(slog.Attr{}) {
		return
	}

	key := attribute.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	if attribute.Value.Kind() == slog.KindGroup {
		children := attribute.Value.Group()
		if len(children) == 0 {
			return
		}

		prefix := groups
		if attribute.Key != "" {
			prefix = append(append([]string(nil), groups...), attribute.Key)
		}

		for index := range children {
			writeAttribute(buffer, prefix, children[index])
		}

		return
	}

	if attribute.Key == "" {
		return
	}

	buffer.WriteByte(' ')
	buffer.WriteString(key)
	buffer.WriteByte('=')
	writeScalar(buffer, attribute.Value)
}

func writeScalar(buffer *bytes.Buffer, value slog.Value) {
	switch value.Kind() {
	case slog.KindString:
		text := value.String()
		if text == "" || strings.ContainsAny(text, " \t\"=") {
			buffer.WriteString(strconv.Quote(text))
		} else {
			buffer.WriteString(text)
		}
	case slog.KindInt64:
		buffer.WriteString(strconv.FormatInt(value.Int64(), 10))
	case slog.KindUint64:
		buffer.WriteString(strconv.FormatUint(value.Uint64(), 10))
	case slog.KindFloat64:
		buffer.WriteString(strconv.FormatFloat(value.Float64(), 'g', -1, 64))
	case slog.KindBool:
		buffer.WriteString(strconv.FormatBool(value.Bool()))
	case slog.KindTime:
		buffer.WriteString(value.Time().Format(time.RFC3339Nano))
	case slog.KindDuration:
		buffer.WriteString(value.Duration().String())
	default:
		text := fmt.Sprint(value.Any())
		if strings.ContainsAny(text, " \t\"=") {
			buffer.WriteString(strconv.Quote(text))
		} else {
			buffer.WriteString(text)
		}
	}
}
