package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"duelarena/server"
)

// DuelArena 入口：启动 HTTP + WebSocket 服务，装配房间注册表、战斗引擎与排行榜
func main() {
	var (
		addr     string
		logPath  string
		rankPath string
		webDir   string
	)
	flag.StringVar(&addr, "addr", ":8080", "server listen address, e.g. :8080")
	flag.StringVar(&logPath, "log", "app.log", "log file path")
	flag.StringVar(&rankPath, "rankings", "rankings.json", "ranking store file path")
	flag.StringVar(&webDir, "web", "web", "static asset directory")
	flag.Parse()

	if err := server.InitLogger(logPath); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	metrics := &server.ServerMetrics{}
	rankings := server.NewRankingStore(rankPath)
	rooms := server.NewRoomRegistry()
	hub := server.NewHub(metrics)
	engine := server.NewEngine(hub, rooms, rankings, metrics)
	gateway := server.NewGateway(hub, rooms, engine, metrics)
	api := server.NewAPI(rooms, rankings, metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.HandleWS)
	mux.HandleFunc("/api/rooms", api.HandleRooms)
	mux.HandleFunc("/api/rankings", api.HandleRankings)
	mux.HandleFunc("/metrics", api.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	// 前后端分离：将 / 映射到静态资源目录
	mux.Handle("/", http.FileServer(http.Dir(webDir)))

	srv := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		server.Log.Infof("DuelArena listening on %s; open http://localhost%v/", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		server.Log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		server.Log.Fatalf("server exit: %v", err)
	}
}
