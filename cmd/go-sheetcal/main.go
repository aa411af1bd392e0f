package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	_ "time/tzdata"

	"github.com/tartampluch/go-sheetcal/internal/config"
	"github.com/tartampluch/go-sheetcal/internal/engine"
)

// main defers to runMain so the log file is closed before os.Exit.
func main() {
	os.Exit(runMain(os.Args[1:]))
}

// runMain executes the command line and maps the outcome to an exit code:
// config.ExitCodeAborted when a bad record stopped the run,
// config.ExitCodeError on any other failure.
func runMain(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		slog.Debug(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
		return config.ExitCodeSuccess
	case errors.Is(err, engine.ErrAborted):
		slog.Warn(config.MsgGenAborted,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeAborted
	default:
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		_, _ = fmt.Fprintln(os.Stderr, err)
		return config.ExitCodeError
	}
}

// versionLine is the text printed by --version.
func versionLine() string {
	return fmt.Sprintf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging installs the default JSON logger on a file in the user cache
// dir. With --debug, stderr gets the logs too.
func setupLogging(debugMode bool) io.Closer {
	level := slog.LevelInfo
	var out []io.Writer
	if debugMode {
		level = slog.LevelDebug
		out = append(out, os.Stderr)
	}

	logFile, err := openLogFile()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, err)
	} else {
		out = append(out, logFile)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(out...), &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	})
	slog.SetDefault(slog.New(handler))

	if logFile == nil {
		return nil
	}
	return logFile
}

// openLogFile truncates the previous run's log in the user cache dir.
func openLogFile() (*os.File, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}
	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return os.OpenFile(filepath.Join(appDir, config.LogFileName), os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
}
