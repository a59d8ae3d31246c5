package configmgr

// Config - config interface.
type Config interface {
	GetServiceName() string
	GetVersion() string
	GetEnvironment() string
	GetServerConfig() *ServerConfig
	GetAwsConfig() *AwsConfig
	GetLoggingConfig() *LoggingConfig
	GetDatasourceConfigs() []DatasourceConfig
	IsLocalEnvironment() bool
}

// BaseConfig - app config struct.
// This struct represents the base configuration for the application and is expected to be in the following YAML format:
/*
name: "TestApp"
environment: "development"
version: "1.0"
logging:
  level: "debug"
aws:
  region: eu-central-1
  endpoint: ""
server:
  port: "8080"
  concurrency: 10
  disableStartupMsg: false
datasources:
  - dbInstanceIdentifier: "test-instance"
    password: "secret"
    username: "admin"
    region: ""
    readReplicaSupport: false
    userTags: true
    pool:
      maxConns: 10
      maxIdleConns: 5
      connMaxLifetimeMinutes: 30
      connMaxIdleTimeMinutes: 5
*/
type BaseConfig struct {
	Name        string             `mapstructure:"name"`
	Environment string             `mapstructure:"environment"`
	Version     string             `mapstructure:"version"`
	Logging     *LoggingConfig     `mapstructure:"logging"`
	Server      *ServerConfig      `mapstructure:"server"`
	Aws         *AwsConfig         `mapstructure:"aws"`
	Datasources []DatasourceConfig `mapstructure:"datasources"`
}

type ServerConfig struct {
	Port                  string `mapstructure:"port"`
	Concurrency           int    `mapstructure:"concurrency"`
	DisableStartupMessage bool   `mapstructure:"disableStartupMsg"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// AwsConfig - AWS client configuration shared by every datasource.
// Endpoint is only set when pointing the SDK at a local stack.
type AwsConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// DatasourceConfig - declarative description of one managed database
// instance backed data source.
type DatasourceConfig struct {
	DbInstanceIdentifier string      `mapstructure:"dbInstanceIdentifier" validate:"required"`
	Password             string      `mapstructure:"password" validate:"required"`
	Username             string      `mapstructure:"username"`
	Region               string      `mapstructure:"region"`
	ReadReplicaSupport   bool        `mapstructure:"readReplicaSupport"`
	UserTags             bool        `mapstructure:"userTags"`
	Pool                 *PoolConfig `mapstructure:"pool"`
}

// PoolConfig - optional pool attribute overrides handed to the pool builder.
type PoolConfig struct {
	MaxConns               int32 `mapstructure:"maxConns" validate:"omitempty,gt=0"`
	MaxIdleConns           int32 `mapstructure:"maxIdleConns" validate:"omitempty,gte=0"`
	ConnMaxLifetimeMinutes int32 `mapstructure:"connMaxLifetimeMinutes" validate:"omitempty,gte=0"`
	ConnMaxIdleTimeMinutes int32 `mapstructure:"connMaxIdleTimeMinutes" validate:"omitempty,gte=0"`
}

func (cfg BaseConfig) GetServiceName() string {
	return cfg.Name
}

func (cfg BaseConfig) GetVersion() string {
	return cfg.Version
}

func (cfg BaseConfig) GetEnvironment() string {
	return cfg.Environment
}

func (cfg BaseConfig) IsLocalEnvironment() bool {
	return checkIfLocalEnv(cfg.Environment)
}

func (cfg BaseConfig) GetServerConfig() *ServerConfig {
	return cfg.Server
}

func (cfg BaseConfig) GetAwsConfig() *AwsConfig {
	if cfg.Aws == nil {
		return &AwsConfig{}
	}

	return cfg.Aws
}

func (cfg BaseConfig) GetLoggingConfig() *LoggingConfig {
	return cfg.Logging
}

func (cfg BaseConfig) GetDatasourceConfigs() []DatasourceConfig {
	return cfg.Datasources
}
