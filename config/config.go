package config

import (
	"fmt"
	"os"

	"VirtualTourServer/utils"
)

// Config 服务全局配置（进程启动时构造一次，显式传给各组件，不做包级单例）
type Config struct {
	Port               int64    // 服务端口
	ToursDir           string   // 全景漫游存储根目录
	CoversDir          string   // 封面图存储目录
	MaxCoverSize       int64    // 封面图最大大小(B)
	MaxTourSize        int64    // 漫游压缩包最大大小(B)
	AllowedCoverExts   []string // 封面图允许的扩展名
	AllowedTourExts    []string // 压缩包允许的扩展名（固定zip）
	CORSOrigins        []string // CORS允许的来源列表
	SecretKey          string   // 令牌签名密钥
	TokenExpireMinutes int64    // 令牌有效期(分钟)
	AuthUsername       string   // 内置账号用户名
	AuthPassword       string   // 内置账号密码
}

// New 从环境变量构造配置，未设置的项使用默认值
func New() *Config {
	return &Config{
		Port:               utils.GetEnvInt64("PORT", 8000),
		ToursDir:           utils.GetEnv("TOURS_DIR", "tours"),
		CoversDir:          utils.GetEnv("COVERS_DIR", "covers"),
		MaxCoverSize:       utils.GetEnvInt64("MAX_COVER_SIZE", 10*1024*1024),
		MaxTourSize:        utils.GetEnvInt64("MAX_TOUR_SIZE", 100*1024*1024),
		AllowedCoverExts:   utils.GetEnvList("ALLOWED_COVER_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif", "webp"}),
		AllowedTourExts:    utils.GetEnvList("ALLOWED_TOUR_EXTENSIONS", []string{"zip"}),
		CORSOrigins:        utils.GetEnvList("BACKEND_CORS_ORIGINS", []string{"*"}),
		SecretKey:          utils.GetEnv("SECRET_KEY", "super-secret-key-change-it"),
		TokenExpireMinutes: utils.GetEnvInt64("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24*7),
		AuthUsername:       utils.GetEnv("AUTH_USERNAME", "Volemby"),
		AuthPassword:       utils.GetEnv("AUTH_PASSWORD", "Volemby"),
	}
}

// EnsureDirs 创建存储目录（启动时显式调用，不放在init里做隐式副作用）
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.ToursDir, c.CoversDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建存储目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}

// CoverExtAllowed 判断封面扩展名是否在允许列表内（传入已转小写的扩展名）
func (c *Config) CoverExtAllowed(ext string) bool {
	for _, allowed := range c.AllowedCoverExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// TourExtAllowed 判断压缩包扩展名是否在允许列表内
func (c *Config) TourExtAllowed(ext string) bool {
	for _, allowed := range c.AllowedTourExts {
		if ext == allowed {
			return true
		}
	}
	return false
}
