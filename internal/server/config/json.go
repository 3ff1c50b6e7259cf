package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "1h" and integer nanoseconds are accepted. Pointer
// fields distinguish "absent" from an explicit false.
type JsonConfig struct {
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP    string         `json:"endpoint_addr_http"`
	StorageDriver       string         `json:"storage_driver"`
	DatabaseDSN         string         `json:"database_dsn"`
	MongoURI            string         `json:"mongo_uri"`
	MongoDatabase       string         `json:"mongo_database"`
	SecretKey           string         `json:"secret_key"`
	OTPValidityDuration timex.Duration `json:"otp_validity_duration"`
	ResetCodeCooldown   timex.Duration `json:"reset_code_cooldown"`
	ReturnOTPOnRegister *bool          `json:"return_otp_on_register"`
	DebugLogCodes       *bool          `json:"debug_log_codes"`
	MailDriver          string         `json:"mail_driver"`
	MailFrom            string         `json:"mail_from"`
	ResendAPIKey        string         `json:"resend_api_key"`
	ResendBaseURL       string         `json:"resend_base_url"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	OTelEndpoint        string         `json:"otel_endpoint"`
}

// parseJson overlays values from the file named by -c/-config in args.
// Only non-empty values replace what is already in config. A file that cannot
// be read or decoded panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.JsonConfigFlags(args)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.StorageDriver, c.StorageDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.SecretKey, c.SecretKey)
	if c.OTPValidityDuration.Duration > 0 {
		config.OTPValidityDuration = c.OTPValidityDuration.Duration
	}
	if c.ResetCodeCooldown.Duration > 0 {
		config.ResetCodeCooldown = c.ResetCodeCooldown.Duration
	}
	if c.ReturnOTPOnRegister != nil {
		config.ReturnOTPOnRegister = *c.ReturnOTPOnRegister
	}
	if c.DebugLogCodes != nil {
		config.DebugLogCodes = *c.DebugLogCodes
	}
	setString(&config.MailDriver, c.MailDriver)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.ResendAPIKey, c.ResendAPIKey)
	setString(&config.ResendBaseURL, c.ResendBaseURL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.OTelEndpoint, c.OTelEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
