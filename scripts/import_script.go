package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"yuja/internal/config"
	novelmodel "yuja/internal/model/novel"
	"yuja/internal/pkg/id"
	"yuja/internal/pkg/logger"
	"yuja/internal/pkg/mongodb"
	novelrepo "yuja/internal/repository/novel"
)

// 从文本文件导入剧本并创建小说，方便在没有前端的环境里快速造数据。
// 用法: go run scripts/import_script.go <script.txt> [title]

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: import_script <script.txt> [title]")
		os.Exit(1)
	}
	scriptPath := os.Args[1]

	// 1. 加载配置（与 cmd/root.go 保持一致的搜索路径）
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.yuja")

	viper.SetEnvPrefix("YUJA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
		os.Exit(1)
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 读取剧本文件
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", scriptPath).Msg("failed to read script file")
	}
	script := strings.TrimSpace(string(data))
	if script == "" {
		log.Fatal().Str("path", scriptPath).Msg("script file is empty")
	}

	title := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	if len(os.Args) > 2 {
		title = os.Args[2]
	}

	// 3. 连接 MongoDB
	client, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect mongo")
	}
	defer func() {
		_ = client.Close(context.Background())
	}()

	ctx := context.Background()
	repo := novelrepo.NewNovelRepo(client.Database())

	now := time.Now()
	n := &novelmodel.Novel{
		ID:        id.New(),
		Title:     title,
		Script:    script,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := repo.Create(ctx, n); err != nil {
		log.Fatal().Err(err).Msg("create novel failed")
	}

	fmt.Printf("Novel imported: id=%s title=%s script_chars=%d\n",
		n.ID, n.Title, len([]rune(n.Script)))
}
