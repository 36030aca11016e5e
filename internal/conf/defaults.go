// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "ShipNoise")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "shipnoise.log")
	viper.SetDefault("main.log.level", "info")

	viper.SetDefault("data.root", ".")

	viper.SetDefault("extractor.radiusm", 30000)
	viper.SetDefault("extractor.cpamaxm", 20000)
	viper.SetDefault("extractor.minsogkt", 2.0)
	viper.SetDefault("extractor.minpoints", 3)
	viper.SetDefault("extractor.mindwellsec", 60)
	viper.SetDefault("extractor.highqualitym", 1000)

	viper.SetDefault("window.halfwindowsec", 180)

	viper.SetDefault("relevance.defaultm", 5000)
	viper.SetDefault("relevance.largem", 8000)
	viper.SetDefault("relevance.smallm", 3000)

	viper.SetDefault("clips.mode", "adjacent")
	viper.SetDefault("clips.ffmpegpath", "ffmpeg")
	viper.SetDefault("clips.samplerate", 48000)
	viper.SetDefault("clips.retryattempts", 3)
	viper.SetDefault("clips.retrybackoffsec", 1)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "shipnoise.db")
}
