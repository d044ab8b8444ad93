package config

const (
	defaultOutputDir           = "~/.local/share/coverforge/output"
	defaultVoiceModelsDir      = "~/.local/share/coverforge/rvc_models"
	defaultSeparationModelsDir = "~/.local/share/coverforge/mdxnet_models"
	defaultLogDir              = "~/.local/share/coverforge/logs"

	defaultYtDlpBinary     = "yt-dlp"
	defaultFFmpegBinary    = "ffmpeg"
	defaultSoxBinary       = "sox"
	defaultSeparatorBinary = "audio-separator"
	defaultRVCBinary       = "rvc"

	defaultVocalModel    = "model_bs_roformer_ep_317_sdr_12.9755.ckpt"
	defaultDereverbModel = "UVR-DeEcho-DeReverb.pth"
	defaultKaraokeModel  = "mel_band_roformer_karaoke_aufr33_viperx_sdr_10.1956.ckpt"

	defaultIndexRate      = 0.5
	defaultFilterRadius   = 3
	defaultRMSMixRate     = 0.25
	defaultF0Method       = "rmvpe"
	defaultCrepeHopLength = 128
	defaultProtect        = 0.33

	defaultReverbRoomSize = 0.15
	defaultReverbWetness  = 0.2
	defaultReverbDryness  = 0.8
	defaultReverbDamping  = 0.7

	defaultOutputFormat = "mp3"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultMinFreeGiB = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:           defaultOutputDir,
			VoiceModelsDir:      defaultVoiceModelsDir,
			SeparationModelsDir: defaultSeparationModelsDir,
			LogDir:              defaultLogDir,
		},
		Engines: Engines{
			YtDlp:     defaultYtDlpBinary,
			FFmpeg:    defaultFFmpegBinary,
			Sox:       defaultSoxBinary,
			Separator: defaultSeparatorBinary,
			RVC:       defaultRVCBinary,
		},
		Separation: Separation{
			VocalModel:    defaultVocalModel,
			DereverbModel: defaultDereverbModel,
			KaraokeModel:  defaultKaraokeModel,
		},
		Conversion: Conversion{
			IndexRate:      defaultIndexRate,
			FilterRadius:   defaultFilterRadius,
			RMSMixRate:     defaultRMSMixRate,
			F0Method:       defaultF0Method,
			CrepeHopLength: defaultCrepeHopLength,
			Protect:        defaultProtect,
		},
		Reverb: Reverb{
			RoomSize: defaultReverbRoomSize,
			Wetness:  defaultReverbWetness,
			Dryness:  defaultReverbDryness,
			Damping:  defaultReverbDamping,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Preflight: Preflight{
			MinFreeGiB: defaultMinFreeGiB,
		},
	}
}
