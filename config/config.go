package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type (
	APP struct {
		Name      string
		Host      string
		Port      string
		Env       string
		JWTSecret string
	}
	DB struct {
		User     string
		Password string
		Name     string
		Host     string
		Port     string
		MaxConns int
	}
	S3 struct {
		Endpoint        string
		Region          string
		AccessKeyID     string
		SecretAccessKey string
		BucketUploads   string
		PublicBaseURL   string
		UsePathStyle    bool
	}
	MQ struct {
		User         string
		Password     string
		Vhost        string
		Host         string
		AmqpPort     string
		Exchange     string
		ExchangeType string
		QueueName    string
	}
	Redis struct {
		Host      string
		Port      string
		Password  string
		DB        int
		StatusTTL time.Duration
	}
	Media struct {
		MaxImages            int
		MaxVideos            int
		MaxFileBytes         int64
		MaxBatchFiles        int
		UploadConcurrency    int
		ThumbnailPlaceholder string
	}

	Config struct {
		App   APP
		DB    DB
		S3    S3
		MQ    MQ
		Redis Redis
		Media Media
	}
)

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return def
}

func Load() Config {
	app := APP{
		Name:      getEnv("SERVICE_NAME", "mediaportfolio"),
		Host:      getEnv("SERVICE_HOST", ""),
		Port:      getEnv("SERVICE_PORT", "8080"),
		Env:       getEnv("SERVICE_ENV", ""),
		JWTSecret: getEnv("SERVICE_JWT_SECRET", ""),
	}
	db := DB{
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		Name:     getEnv("POSTGRES_DB", ""),
		Host:     getEnv("POSTGRES_HOST", ""),
		Port:     getEnv("POSTGRES_PORT", ""),
		MaxConns: getEnvInt("POSTGRES_MAX_CONNS", 10),
	}
	s3 := S3{
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		Region:          getEnv("S3_REGION", "us-east-1"),
		AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		BucketUploads:   getEnv("S3_BUCKET_UPLOADS", ""),
		PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
		UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
	}
	mq := MQ{
		User:         getEnv("RABBITMQ_USER", ""),
		Password:     getEnv("RABBITMQ_PASSWORD", ""),
		Vhost:        getEnv("RABBITMQ_VHOST", ""),
		Host:         getEnv("RABBITMQ_HOST", ""),
		AmqpPort:     getEnv("RABBITMQ_AMQP_PORT", ""),
		Exchange:     getEnv("RABBITMQ_EXCHANGE", "media"),
		ExchangeType: getEnv("RABBITMQ_EXCHANGE_TYPE", "topic"),
		QueueName:    getEnv("RABBITMQ_QUEUE_NAME", "media.blob_orphaned"),
	}
	redis := Redis{
		Host:      getEnv("REDIS_HOST", ""),
		Port:      getEnv("REDIS_PORT", "6379"),
		Password:  getEnv("REDIS_PASSWORD", ""),
		DB:        getEnvInt("REDIS_DB", 0),
		StatusTTL: getEnvDuration("REDIS_BATCH_STATUS_TTL", 24*time.Hour),
	}
	media := Media{
		MaxImages:            getEnvInt("MEDIA_MAX_IMAGES", 10),
		MaxVideos:            getEnvInt("MEDIA_MAX_VIDEOS", 4),
		MaxFileBytes:         int64(getEnvInt("MEDIA_MAX_FILE_BYTES", 50<<20)),
		MaxBatchFiles:        getEnvInt("MEDIA_MAX_BATCH_FILES", 20),
		UploadConcurrency:    getEnvInt("MEDIA_UPLOAD_CONCURRENCY", 1),
		ThumbnailPlaceholder: getEnv("MEDIA_VIDEO_THUMBNAIL_PLACEHOLDER", "/static/video-placeholder.png"),
	}

	return Config{
		App:   app,
		DB:    db,
		S3:    s3,
		MQ:    mq,
		Redis: redis,
		Media: media,
	}
}

func (c Config) DBDSN() (string, error) {
	if c.DB.User == "" || c.DB.Name == "" || c.DB.Host == "" || c.DB.Port == "" {
		return "", fmt.Errorf("incomplete DB config")
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
	), nil
}

func (c Config) AMQPDSN() (string, error) {
	if c.MQ.User == "" || c.MQ.Host == "" || c.MQ.AmqpPort == "" {
		return "", fmt.Errorf("invalid MQ config: user, host and amqp port are required")
	}

	return fmt.Sprintf(
		"%s://%s@%s:%s/%s",
		"amqp",
		url.UserPassword(c.MQ.User, c.MQ.Password).String(),
		c.MQ.Host,
		c.MQ.AmqpPort,
		url.PathEscape(c.MQ.Vhost),
	), nil
}

// RedisAddr returns an empty string when Redis is not configured; batch
// statuses are then kept in process memory.
func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}
