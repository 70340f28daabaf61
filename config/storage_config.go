package config

// filesystem roots used by the file store
type storageConfig struct {
	// directory for service-internal data (journal, snapshots)
	DataDirectory string `yaml:"data_dir"`
	// primary storage root; uploaded files live at {container_uuid}_{file_uuid}
	Storage string `yaml:"storage"`
	// legacy storage root; pre-existing files live at {numeric_id}/{name}
	SecondaryStorage string `yaml:"secondary_storage"`
	// where generated thumbnails are kept
	ThumbnailStorage string `yaml:"thumbnail_storage"`
	// where account profile images are kept
	ProfileImagesStorage string `yaml:"profile_images_storage"`
}

// storage quota resolution: explicit account quota, then the account's
// e-mail domain, then the default
type quotasConfig struct {
	// default per-account quota in bytes
	DefaultBytes int `yaml:"default"`
	// per-domain group quotas in bytes, keyed by e-mail domain
	Domains map[string]int `yaml:"domains"`
}
