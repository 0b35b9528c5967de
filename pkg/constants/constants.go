// Package constants provides shared constants for the pawn-calculator application.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// DefaultInitialRate is the base annual rate, in percent, used when a
	// weight table carries no usable initial rate.
	DefaultInitialRate = 2.5

	// NeutralWeight is the multiplier applied when a weight lookup misses.
	NeutralWeight = 1.0

	// MaxVehicleModelLength bounds the free-text vehicle model field.
	MaxVehicleModelLength = 100
)

// AllowedPeriods lists the repayment period counts (months) a loan may use.
var AllowedPeriods = []int{1, 3, 6, 12, 24, 36, 48, 60, 72}

// Collateral type labels.
const (
	CollateralVehicle           = "汽車機車"
	CollateralCheck             = "支票客票"
	CollateralRealEstateSecond  = "房屋土地二胎"
	CollateralJewelry           = "鑽石珠寶典當"
	CollateralDebtConsolidation = "代償降息整合"
)

// Vehicle kind labels.
const (
	VehicleCar        = "汽車"
	VehicleMotorcycle = "機車"
)

// Vehicle usage duration labels.
const (
	UsageOneYear      = "1年"
	UsageThreeYears   = "3年"
	UsageFiveYears    = "5年"
	UsageTenYearsPlus = "10年以上"
)

// Check kind labels.
const (
	CheckOwn      = "支票"
	CheckCustomer = "客票"
)

// Repayment condition labels.
const (
	RepaymentAmortized    = "本利攤還"
	RepaymentInterestOnly = "先還利息"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "PAWN"
)

// Weight store constants
const (
	// DefaultAppID scopes the weights document when no app id is configured
	DefaultAppID = "pawn-calculator-default"

	// StoreDriverMemory keeps the weights document in process
	StoreDriverMemory = "memory"

	// StoreDriverRedis keeps the weights document in redis
	StoreDriverRedis = "redis"

	// StoreDriverPostgres keeps the weights document in postgres
	StoreDriverPostgres = "postgres"

	// StoreDriverFirestore keeps the weights document in firestore
	StoreDriverFirestore = "firestore"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultLoginAttempts is the number of admin login attempts allowed per
	// client within DefaultLoginWindow
	DefaultLoginAttempts = 5

	// DefaultLoginWindow is the admin login rate limit window
	DefaultLoginWindow = "1m"

	// DefaultTokenTTL is the lifetime of an admin session token
	DefaultTokenTTL = "30m"

	// DefaultPollInterval is how often polling stores check for changes
	DefaultPollInterval = "5s"
)
