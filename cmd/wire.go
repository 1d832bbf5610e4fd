package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	callfile "github.com/jfcl7/jcblock/internal/adapters/calllog/file"
	serialmodem "github.com/jfcl7/jcblock/internal/adapters/modem/serial"
	topkrank "github.com/jfcl7/jcblock/internal/adapters/rank/topk"
	listsrender "github.com/jfcl7/jcblock/internal/adapters/render/lists"
	"github.com/jfcl7/jcblock/internal/adapters/repo/listfile"
	"github.com/jfcl7/jcblock/internal/application"
	"github.com/jfcl7/jcblock/internal/config"
	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/jfcl7/jcblock/internal/ports"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg       config.Config
	logger    *logrus.Logger
	allowRepo *listfile.Repository
	blockRepo *listfile.Repository
	callLog   *callfile.Store
	lists     *application.ListService
	reports   *application.ReportService

	listRenderer    func(*domain.PatternList, listsrender.RenderOptions) (string, error)
	callersRenderer func([]domain.CallerCount, int) (string, error)
	openModem       func(cfg config.ModemConfig, logger logrus.FieldLogger) (ports.ModemLink, error)
	sleep           application.SleepFunc
	clock           ports.Clock
}

func newApp() *app {
	return &app{
		listRenderer:    listsrender.Render,
		callersRenderer: listsrender.RenderCallers,
		openModem:       openSerialModem,
		clock:           ports.SystemClock{},
	}
}

func openSerialModem(cfg config.ModemConfig, logger logrus.FieldLogger) (ports.ModemLink, error) {
	link, err := serialmodem.Open(cfg.Port, cfg.Baud, logger)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// wire loads the config and builds the logger, repositories and services.
func (a *app) wire(logOutput io.Writer) error {
	cfg, err := config.Load(viper.New(), a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	logger, err := newLogger(cfg.Logging, logOutput)
	if err != nil {
		return err
	}

	allowRepo, err := listfile.NewRepository(domain.ListAllow, cfg.Lists.Allow, a.clock, logger)
	if err != nil {
		return fmt.Errorf("wire allow list: %w", err)
	}
	blockRepo, err := listfile.NewRepository(domain.ListBlock, cfg.Lists.Block, a.clock, logger)
	if err != nil {
		return fmt.Errorf("wire block list: %w", err)
	}
	callLog := callfile.NewStore(cfg.CallLog.Path, logger)

	lists := application.NewListService(allowRepo, blockRepo, a.clock)
	newRanker := func(k, window int) ports.CallerRanker {
		return topkrank.NewRanker(k, window)
	}

	a.cfg = cfg
	a.logger = logger
	a.allowRepo = allowRepo
	a.blockRepo = blockRepo
	a.callLog = callLog
	a.lists = lists
	a.reports = application.NewReportService(callLog, lists, newRanker, a.clock)

	return nil
}

func newLogger(cfg config.LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	return logger, nil
}
