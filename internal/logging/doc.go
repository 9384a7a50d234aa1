// Package logging configures the slog logger used by folder-observer and
// provides a small viewer for its JSON log files.
//
// Without a log file, records go to stderr through a text handler. With a
// log file, records are written as JSON lines to a size-rotating file and
// can be read back with the viewer:
//
//	logger, cleanup, err := logging.Setup(logging.Config{
//		Level:    "debug",
//		FilePath: "/var/log/folder-observer.log",
//	})
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//	slog.SetDefault(logger)
package logging
