package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers the default value of every setting
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("model.path", "")
	viper.SetDefault("model.classes", []string{"Good", "Underexposed", "Overexposed"})
	viper.SetDefault("model.inputwidth", 224)
	viper.SetDefault("model.inputheight", 224)
	viper.SetDefault("model.channels", 3)
	viper.SetDefault("model.mean", []float64{0.485, 0.456, 0.406})
	viper.SetDefault("model.std", []float64{0.229, 0.224, 0.225})
	viper.SetDefault("model.threads", 0)
	viper.SetDefault("model.usexnnpack", false)
	viper.SetDefault("model.softmax", false)

	viper.SetDefault("evaluation.batchsize", 32)
	viper.SetDefault("evaluation.prefetch", 64)
	viper.SetDefault("evaluation.workers", 0)
	viper.SetDefault("evaluation.framerate", 0.0)
	viper.SetDefault("evaluation.calltimeout", 30*time.Second)
	viper.SetDefault("evaluation.retry.maxretries", 3)
	viper.SetDefault("evaluation.retry.initialdelay", 200*time.Millisecond)
	viper.SetDefault("evaluation.retry.maxdelay", 5*time.Second)
	viper.SetDefault("evaluation.retry.multiplier", 2.0)

	viper.SetDefault("video.ffmpegpath", "ffmpeg")
	viper.SetDefault("video.ffprobepath", "ffprobe")
	viper.SetDefault("video.extensions", []string{".mp4", ".mov", ".mkv", ".avi", ".webm"})

	viper.SetDefault("output.format", "table")
	viper.SetDefault("output.path", "")
	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "framegrade.db")
	viper.SetDefault("output.mqtt.enabled", false)
	viper.SetDefault("output.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("output.mqtt.topic", "framegrade/reports")
	viper.SetDefault("output.mqtt.clientid", "framegrade")
	viper.SetDefault("output.mqtt.username", "")
	viper.SetDefault("output.mqtt.password", "")
	viper.SetDefault("output.mqtt.timeout", 10*time.Second)

	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.console.stderr", true)
	viper.SetDefault("logging.fileoutput.enabled", false)
	viper.SetDefault("logging.fileoutput.path", "logs/framegrade.log")
	viper.SetDefault("logging.fileoutput.level", "info")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)
}
