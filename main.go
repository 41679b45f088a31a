package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap/zapcore"

	"campusmarket/config"
	"campusmarket/logger"
	"campusmarket/module/assistant"
	"campusmarket/module/market"
	"campusmarket/module/session"
	"campusmarket/service/api"
	"campusmarket/service/cache"
	"campusmarket/service/stub"
	"campusmarket/service/transport"
	"campusmarket/storage"
	"campusmarket/tools/safe"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "path to the yaml config file")
		runStub  = flag.String("stub", "", "also serve the in-memory collaborator on this address, e.g. :8080")
		userID   = flag.Int64("user", 0, "user id to connect as")
		token    = flag.String("token", "", "access token; minted automatically in stub mode")
		logLevel = flag.String("log-level", "", "override the configured log level")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			logger.Errorf("load config %s: %v", *cfgPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if cfg.LogLevel != "" {
		if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
			logger.SetLevel(lvl)
		}
	}

	accessToken := *token
	connectAs := *userID
	if *runStub != "" {
		srv := stub.NewServer("dev-secret")
		alice := srv.AddUser("alice", "Alice Chen", "student")
		bob := srv.AddUser("bob", "Bob Park", "student")
		srv.AddItem(bob.ID, "Calculus Textbook", "Stewart 8th edition, barely used", "books", "like_new", 45)
		srv.AddItem(bob.ID, "Mountain Bike", "Trek, some scratches", "sports", "good", 180)
		srv.AddItem(alice.ID, "Desk Lamp", "LED, adjustable arm", "furniture", "new", 20)
		router := srv.Router()
		safe.Go(func() {
			if err := router.Run(*runStub); err != nil {
				logger.Errorf("stub server: %v", err)
			}
		})
		if connectAs == 0 {
			connectAs = alice.ID
		}
		if accessToken == "" {
			accessToken = srv.Token(connectAs)
		}
		logger.Infof("stub collaborator on %s, connecting as user %d", *runStub, connectAs)
	}
	if connectAs == 0 || accessToken == "" {
		logger.Error("need -user and -token (or -stub to mint them)")
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Errorf("open storage backend %s: %v", cfg.Storage.Backend, err)
		os.Exit(1)
	}
	watched := storage.NewWatched(store)
	if err := watched.Set(storage.KeyAccessToken, accessToken); err != nil {
		logger.Errorf("persist token: %v", err)
		os.Exit(1)
	}

	watcher := session.NewWatcher(watched, cfg.LogoutCheck)
	client := api.NewClient(cfg.Server.BaseURL, watcher.Token)
	client.OnUnauthorized = func() {
		logger.Warn("rest call rejected as unauthorized, logging out")
		watcher.Logout()
	}
	qc := cache.New()

	tr := transport.New(transport.Config{
		URL:          cfg.Server.WSURL,
		PingInterval: cfg.PingInterval,
		MaxAttempts:  cfg.Transport.ReconnectMaxAttempts,
		BackoffStep:  cfg.ReconnectStep,
	})
	tr.OnAuthExpired = func(reason string) {
		logger.Warnf("session rejected (%s), logging out", reason)
		watcher.Logout()
	}

	vm := market.NewViewModel(connectAs, client, qc, market.NewCelebrations(storage.NewMemory()), market.Config{
		ConversationsPoll: cfg.ConversationsPoll,
		MessagesPoll:      cfg.MessagesPoll,
	})
	vm.OnCelebrate = func(sold transport.ItemSold) {
		logger.Infof("🎉 %s sold for $%.2f", sold.ItemTitle, sold.SalePrice)
	}
	inbox := market.NewInbox(client, qc)
	chat := assistant.NewSession(watched, client, nil, cfg.Assistant.TranscriptCap)
	chat.Init()

	watcher.OnLogout(func() {
		tr.Disconnect()
		vm.Stop()
		inbox.Stop()
		chat.Reset()
		logger.Info("logged out; realtime and polling stopped")
	})
	watcher.Start()

	if err := tr.Connect(connectAs, accessToken); err != nil {
		logger.Warnf("initial connect failed, reconnect scheduled: %v", err)
	}
	vm.Start(tr)
	inbox.Start(tr, cfg.ConversationsPoll)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if convs, err := vm.Conversations(ctx); err == nil {
		logger.Infof("loaded %d conversation(s)", len(convs))
	} else {
		logger.Warnf("load conversations: %v", err)
	}
	cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	watcher.Stop()
	vm.Stop()
	inbox.Stop()
	tr.Disconnect()
	qc.Close()
	logger.Info("shutdown complete")
}

// openStore builds the configured key-value backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "file":
		return storage.NewFile(cfg.Storage.Path)
	case "redis":
		rdb, err := storage.DialRedis(cfg.Storage.Addr, cfg.Storage.Pass, cfg.Storage.DB)
		if err != nil {
			return nil, err
		}
		return storage.NewRedis(rdb, cfg.Storage.Prefix), nil
	default:
		return storage.NewMemory(), nil
	}
}
