package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"FeedNotify/global"
	"FeedNotify/global/config"
	"FeedNotify/service/nacos"
	"FeedNotify/tools"

	"github.com/golang/glog"
)

func main() {
	path := flag.String("config", tools.GetEnv("CONFIG", ""), "YAML config file")
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load(*path, fetchNacos)
	if err != nil {
		glog.Errorf("load config: %v", err)
		os.Exit(1)
	}

	app, err := global.Setup(cfg)
	if err != nil {
		glog.Errorf("setup: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		glog.Errorf("run: %v", err)
		os.Exit(1)
	}
	glog.Info("seguir-notify stopped")
}

// fetchNacos reads the remote YAML document once at start.
func fetchNacos(c config.NacosConfig) (string, error) {
	src, err := nacos.NewSource(nacos.Config{
		Host:      c.Host,
		Port:      c.Port,
		Namespace: c.Namespace,
		Username:  c.Username,
		Password:  c.Password,
		DataID:    c.DataID,
		Group:     c.Group,
	})
	if err != nil {
		return "", err
	}
	defer src.Close()
	return src.Fetch()
}
