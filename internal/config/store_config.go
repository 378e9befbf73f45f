package config

const (
	storeDriverVar = "STORE_DRIVER"
	databaseURLVar = "DATABASE_URL"
	mediaDriverVar = "MEDIA_DRIVER"
	s3BucketVar    = "S3_BUCKET"
	s3RegionVar    = "S3_REGION"
	s3EndpointVar  = "S3_ENDPOINT"
	s3PublicURLVar = "S3_PUBLIC_URL"
	s3AccessKeyVar = "S3_ACCESS_KEY_ID"
	s3SecretKeyVar = "S3_SECRET_ACCESS_KEY"
	redisAddrVar   = "REDIS_ADDR"

	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	MediaDriverMemory   = "memory"
	MediaDriverS3       = "s3"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetDatabaseURL() string
	GetMediaDriver() string
	GetS3Bucket() string
	GetS3Region() string
	GetS3Endpoint() string
	GetS3PublicURL() string
	// GetS3Credentials returns static keys. Empty values mean the default AWS chain.
	GetS3Credentials() (accessKeyID, secretAccessKey string)
	GetRedisAddr() string
}

type Storage struct {
	storeDriver string
	databaseURL string
	mediaDriver string
	s3Bucket    string
	s3Region    string
	s3Endpoint  string
	s3PublicURL string
	s3AccessKey string
	s3SecretKey string
	redisAddr   string
}

var _ StoreConfig = Storage{}

func loadStorage(r *reader) Storage {
	return Storage{
		storeDriver: r.optional(storeDriverVar, StoreDriverMemory),
		databaseURL: r.optional(databaseURLVar, ""),
		mediaDriver: r.optional(mediaDriverVar, MediaDriverMemory),
		s3Bucket:    r.optional(s3BucketVar, ""),
		s3Region:    r.optional(s3RegionVar, "us-east-1"),
		s3Endpoint:  r.optional(s3EndpointVar, ""),
		s3PublicURL: r.optional(s3PublicURLVar, ""),
		s3AccessKey: r.optional(s3AccessKeyVar, ""),
		s3SecretKey: r.optional(s3SecretKeyVar, ""),
		redisAddr:   r.optional(redisAddrVar, ""),
	}
}

func (s Storage) GetStoreDriver() string {
	return s.storeDriver
}

func (s Storage) GetDatabaseURL() string {
	return s.databaseURL
}

func (s Storage) GetMediaDriver() string {
	return s.mediaDriver
}

func (s Storage) GetS3Bucket() string {
	return s.s3Bucket
}

func (s Storage) GetS3Region() string {
	return s.s3Region
}

func (s Storage) GetS3Endpoint() string {
	return s.s3Endpoint
}

func (s Storage) GetS3PublicURL() string {
	return s.s3PublicURL
}

func (s Storage) GetS3Credentials() (string, string) {
	return s.s3AccessKey, s.s3SecretKey
}

func (s Storage) GetRedisAddr() string {
	return s.redisAddr
}
