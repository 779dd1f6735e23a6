package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crytic/symfuzz/logging/colors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// GlobalLogger describes a Logger that is disabled by default and is instantiated when the CLI starts. Each
// module/package should create its own sub-logger. This allows to create unique logging instances depending on the use
// case.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a custom logging object that can log events to any arbitrary channel in structured, unstructured
// with color, and unstructured formats.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// structuredLogger describes a logger that will be used to output structured logs to any arbitrary channel.
	structuredLogger zerolog.Logger

	// structuredWriters describes the various channels that the output from the structuredLogger will go to.
	structuredWriters []io.Writer

	// unstructuredLogger describes a logger that will be used to output unstructured, uncolored logs.
	unstructuredLogger zerolog.Logger

	// unstructuredWriters describes the various channels that the output from the unstructuredLogger will go to.
	unstructuredWriters []io.Writer

	// unstructuredColorLogger describes a logger that will be used to output unstructured, colorized logs.
	unstructuredColorLogger zerolog.Logger

	// unstructuredColorWriters describes the various channels that the output from the unstructuredColorLogger will go
	// to.
	unstructuredColorWriters []io.Writer

	// context describes the key-value pairs every event of this logger is annotated with. They are kept so the
	// underlying loggers can be rebuilt when writers change.
	context [][2]string
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. By default, a logger that is instantiated
// with this function is not usable until a log channel is added. To add or remove channels that the logger
// streams logs to, call the Logger.AddWriter and Logger.RemoveWriter functions.
func NewLogger(level zerolog.Level) *Logger {
	l := &Logger{
		level:                    level,
		structuredWriters:        make([]io.Writer, 0),
		unstructuredWriters:      make([]io.Writer, 0),
		unstructuredColorWriters: make([]io.Writer, 0),
	}
	l.rebuild()
	return l
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	sub := &Logger{
		level:                    l.level,
		structuredWriters:        slices.Clone(l.structuredWriters),
		unstructuredWriters:      slices.Clone(l.unstructuredWriters),
		unstructuredColorWriters: slices.Clone(l.unstructuredColorWriters),
		context:                  append(slices.Clone(l.context), [2]string{key, value}),
	}
	sub.rebuild()
	return sub
}

// AddWriter will add a writer to which log output will go to. If the format is structured then the writer will
// receive structured logs. If the format is unstructured, the colored flag decides whether the writer receives
// colorized output. A writer that was already added with the same format and coloring is ignored.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	if slices.Contains(*writers, writer) {
		return
	}
	*writers = append(*writers, writer)
	l.rebuild()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. The writer will be either
// removed from the structured, unstructured and colorized, or unstructured and non-colorized writer list. If the
// writer does not exist, this function is a no-op.
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	index := slices.Index(*writers, writer)
	if index == -1 {
		return
	}
	*writers = slices.Delete(*writers, index, index+1)
	l.rebuild()
}

// writersFor returns the writer list associated with a format and coloring.
func (l *Logger) writersFor(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// rebuild recreates the underlying zerolog loggers from the current level, writers and context.
func (l *Logger) rebuild() {
	structured := make([]io.Writer, 0, len(l.structuredWriters))
	structured = append(structured, l.structuredWriters...)
	unstructured := make([]io.Writer, 0, len(l.unstructuredWriters))
	for _, w := range l.unstructuredWriters {
		unstructured = append(unstructured, setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level))
	}
	colored := make([]io.Writer, 0, len(l.unstructuredColorWriters))
	for _, w := range l.unstructuredColorWriters {
		colored = append(colored, &colorConsoleWriter{out: w, level: l.level})
	}

	l.structuredLogger = l.newZerolog(structured, true)
	l.unstructuredLogger = l.newZerolog(unstructured, false)
	l.unstructuredColorLogger = l.newZerolog(colored, false)
}

// newZerolog creates a zerolog logger over the provided writers, carrying the logger's context. A logger without
// writers is disabled.
func (l *Logger) newZerolog(writers []io.Writer, timestamp bool) zerolog.Logger {
	if len(writers) == 0 {
		return zerolog.Nop()
	}
	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(l.level).With()
	if timestamp {
		ctx = ctx.Timestamp()
	}
	for _, kv := range l.context {
		ctx = ctx.Str(kv[0], kv[1])
	}
	return ctx.Logger()
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// Panic is a wrapper function that will log a panic event
func (l *Logger) Panic(args ...any) {
	l.log(zerolog.PanicLevel, args...)
}

// log sends one event at the given level to every channel of the logger.
func (l *Logger) log(level zerolog.Level, args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	colorMsg, noColorMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	structuredLog := l.structuredLogger.WithLevel(level)
	unstructuredLog := l.unstructuredLogger.WithLevel(level)
	colorLog := l.unstructuredColorLogger.WithLevel(level)

	// Chain the error, with stack traces at debug level or for panics
	debug := l.level <= zerolog.DebugLevel || level == zerolog.PanicLevel
	chainError(err, debug, structuredLog, unstructuredLog, colorLog)

	// Chain the structured log info and messages and send off the logs. WithLevel does not panic on its own, so the
	// panic is raised once every channel has received the event.
	chainStructuredLogInfo(info, structuredLog, unstructuredLog, colorLog)
	structuredLog.Msg(noColorMsg)
	unstructuredLog.Msg(noColorMsg)
	colorLog.Msg(colorMsg)
	if level == zerolog.PanicLevel {
		panic(noColorMsg)
	}
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings and,
// optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be used for
// console logging while the second string will be a non-colorized one that can be used for file/structured logging.
// The error and the StructuredLogInfo can be used to add additional context to log messages
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	// Guard clause
	if len(args) == 0 {
		return "", "", nil, nil
	}

	// Initialize the base color context, the string buffers and the structured log info object
	colorCtx := colors.Reset
	colorOutput := make([]string, 0)
	noColorOutput := make([]string, 0)
	var info StructuredLogInfo
	var err error

	// Iterate through each argument in the list and switch on type
	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// If the argument is a color function, switch the current color context
			colorCtx = t
		case StructuredLogInfo:
			// Note that only one structured log info can be provided for each log message
			info = t
		case *LogBuffer:
			// Log buffers carry their own color contexts
			c, n, _, _ := buildMsgs(t.Args()...)
			colorOutput = append(colorOutput, c)
			noColorOutput = append(noColorOutput, n)
		case error:
			// Note that only one error can be provided for each log message
			err = t
		default:
			// In the base case, append the object to the two string buffers. The colored string buffer will have the
			// current color context applied to it.
			colorOutput = append(colorOutput, colorCtx(t))
			noColorOutput = append(noColorOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(colorOutput, ""), strings.Join(noColorOutput, ""), err, info
}

// chainError is a helper function that takes in a set of *zerolog.Event and chains an error to each of them. If debug
// is true, then a stack trace is added to the events as well.
func chainError(err error, debug bool, events ...*zerolog.Event) {
	for _, event := range events {
		// Note that even if err is nil, there will not be a panic here
		event.Err(err)
		if debug {
			event.Stack()
		}
	}
}

// chainStructuredLogInfo is a helper function that adds any StructuredLogInfo to a set of events.
func chainStructuredLogInfo(info StructuredLogInfo, events ...*zerolog.Event) {
	if info == nil {
		return
	}
	for _, event := range events {
		event.Any("info", info)
	}
}

// colorConsoleWriter formats events for a colored console. Whether colors are emitted is decided on every write, so
// colors.DisableColor also applies to writers added before it was called.
type colorConsoleWriter struct {
	out   io.Writer
	level zerolog.Level
}

// Write implements io.Writer.
func (w *colorConsoleWriter) Write(p []byte) (int, error) {
	writer := setupDefaultFormatting(zerolog.ConsoleWriter{Out: w.out, NoColor: !colors.Enabled()}, w.level)
	return writer.Write(p)
}

// setupDefaultFormatting will update the console logger's formatting to the symfuzz standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	// We will define a custom format for each level
	writer.FormatLevel = func(i any) string {
		// Create a level object for better switch logic
		levelText, _ := i.(string)
		level, err := zerolog.ParseLevel(levelText)
		if err != nil {
			return levelText
		}

		// Switch on the level and return a custom, colored string
		switch level {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return colors.RedBold(zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			return colors.RedBold(zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			return colors.RedBold(zerolog.LevelPanicValue)
		default:
			return levelText
		}
	}

	// If we are above debug level, we want to get rid of the `module` component when logging to console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}
