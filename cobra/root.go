package cobra

import (
	. "VirtualTourServer/middleware"

	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"VirtualTourServer/config"
	"VirtualTourServer/filemanager"
	"VirtualTourServer/serverRouter"
	"VirtualTourServer/views"
)

var (
	flagPort      int64
	flagToursDir  string
	flagCoversDir string
	flagUsername  string
	flagPassword  string
	flagSecret    string
)

var rootCmd = &cobra.Command{
	Use:   "VirtualTourServer",
	Short: "全景漫游上传管理服务",
	Run: func(cmd *cobra.Command, args []string) {

		// 1. 构造配置：.env文件 → 环境变量 → 命令行参数覆盖
		_ = godotenv.Load()
		cfg := config.New()
		if cmd.Flags().Changed("port") {
			cfg.Port = flagPort
		}
		if cmd.Flags().Changed("tours-dir") {
			cfg.ToursDir = flagToursDir
		}
		if cmd.Flags().Changed("covers-dir") {
			cfg.CoversDir = flagCoversDir
		}
		if cmd.Flags().Changed("username") {
			cfg.AuthUsername = flagUsername
		}
		if cmd.Flags().Changed("password") {
			cfg.AuthPassword = flagPassword
		}
		if cmd.Flags().Changed("secret") {
			cfg.SecretKey = flagSecret
		}
		Logger.Info("配置参数解析完成",
			zap.Int64("port", cfg.Port),
			zap.String("tours_dir", cfg.ToursDir),
			zap.String("covers_dir", cfg.CoversDir),
			zap.Int64("max_cover_size", cfg.MaxCoverSize),
			zap.Int64("max_tour_size", cfg.MaxTourSize),
			zap.Strings("cors_origins", cfg.CORSOrigins),
		)

		// 2. 创建存储目录（显式启动步骤，带错误日志）
		if err := cfg.EnsureDirs(); err != nil {
			Logger.Fatal("创建存储目录失败", zap.Error(err))
		}
		Logger.Debug("存储目录创建/检查成功",
			zap.String("tours_dir", cfg.ToursDir),
			zap.String("covers_dir", cfg.CoversDir),
		)

		// 3. 初始化Gin引擎
		r := gin.New()
		// 核心中间件：恢复panic + zap请求日志 + CORS
		r.Use(
			gin.Recovery(), // 基础panic恢复（与RecoveryWithZap配合）
			ginzap.Ginzap(Logger, time.RFC3339, true), // 请求日志
			ginzap.RecoveryWithZap(Logger, true),      // panic恢复日志（带堆栈）
		)
		r.Use(cors.New(corsConfig(cfg)))

		// 4. 组件装配：文件管理器 → 路由层 → 路由表
		fm := filemanager.New(cfg)
		h := views.NewHandler(cfg, fm)
		serverRouter.RouterInit(r, cfg, h)

		// 5. 启动前日志（结构化输出）
		serverAddr := fmt.Sprintf("http://0.0.0.0:%d", cfg.Port)
		Logger.Info("Gin服务启动中",
			zap.String("server_addr", serverAddr),
			zap.String("tours_dir", cfg.ToursDir),
		)

		// 6. 启动服务（带错误日志）
		if err := r.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			Logger.Fatal("服务器启动失败", zap.Error(err))
		}
	},
}

// corsConfig 按配置生成CORS策略，带凭证的通配来源用放行函数表达
func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	wildcard := false
	for _, origin := range cfg.CORSOrigins {
		if strings.TrimSpace(origin) == "*" {
			wildcard = true
			break
		}
	}
	if wildcard {
		// AllowCredentials下gin-contrib/cors不接受AllowAllOrigins，改用函数放行
		corsCfg.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	return corsCfg
}

// Execute 执行根命令（入口函数）
func Execute() {
	// 确保程序退出时刷新日志缓冲区
	defer func() {
		if err := Logger.Sync(); err != nil {
			fmt.Printf("日志缓冲区刷新失败: %v\n", err)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		Logger.Error("命令执行失败", zap.Error(err))
		os.Exit(1)
	}
}

// init 初始化：先初始化日志，再定义命令行参数
func init() {
	// 优先初始化zap日志（必须在所有日志输出前执行）
	InitZapLogger()
	Logger.Debug("zap日志初始化完成")

	rootCmd.PersistentFlags().Int64VarP(
		&flagPort,
		"port", "P",
		8000,
		"指定启动的端口，默认:8000",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagToursDir,
		"tours-dir", "t",
		"tours",
		"漫游存储目录，默认:tours",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagCoversDir,
		"covers-dir", "c",
		"covers",
		"封面存储目录，默认:covers",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagUsername,
		"username", "u",
		"Volemby",
		"默认登陆用户名",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagPassword,
		"password", "p",
		"Volemby",
		"默认登陆密码",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagSecret,
		"secret", "s",
		"super-secret-key-change-it",
		"令牌签名密钥，生产环境务必修改",
	)
}
