package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-l string   HTTP bind address (e.g., ":8000")
//	-m string   storage driver: postgres, mongo or memory
//	-d string   PostgreSQL DSN
//	-o string   MongoDB URI
//	-n string   MongoDB database name
//	-s string   JWT HMAC secret key
//	-t int      one-time code validity, minutes
//	-r int      forgot-password resend cooldown, minutes
//	-x bool     return the registration code to the caller
//	-v bool     log issued one-time codes at debug level
//	-k string   mail driver: resend or log
//	-f string   mail "from" address
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Boolean flags switch off with -x=false or -x false.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{
		"-a", "-l", "-m", "-d", "-o", "-n", "-s", "-t", "-r", "-x", "-v", "-k", "-f", "-u", "-p", "-b", "-g", "-e",
	})
	args = flagx.InlineBoolValues(args, []string{"-x", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.StorageDriver, "m", config.StorageDriver, "storage driver (postgres, mongo, memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MongoURI, "o", config.MongoURI, "MongoDB URI")
	fs.StringVar(&config.MongoDatabase, "n", config.MongoDatabase, "MongoDB database")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	otpValidity := fs.Int("t", int(config.OTPValidityDuration.Minutes()), "one-time code validity (in minutes)")
	resetCooldown := fs.Int("r", int(config.ResetCodeCooldown.Minutes()), "forgot-password cooldown (in minutes)")

	fs.BoolVar(&config.ReturnOTPOnRegister, "x", config.ReturnOTPOnRegister, "return the registration code to the caller")
	fs.BoolVar(&config.DebugLogCodes, "v", config.DebugLogCodes, "log issued one-time codes")
	fs.StringVar(&config.MailDriver, "k", config.MailDriver, "mail driver (resend, log)")
	fs.StringVar(&config.MailFrom, "f", config.MailFrom, "mail from address")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
	if fs.NArg() > 0 {
		panic(fmt.Errorf("unexpected argument %q", fs.Arg(0)))
	}

	// minute flags overwrite env/JSON durations only when given
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.OTPValidityDuration = time.Duration(*otpValidity) * time.Minute
		case "r":
			config.ResetCodeCooldown = time.Duration(*resetCooldown) * time.Minute
		}
	})
}
