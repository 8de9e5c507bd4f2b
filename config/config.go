// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server    ServerConfiguration
	Store     StoreConfiguration
	Cache     CacheConfiguration
	Redis     RedisConfiguration
	Neo4j     DatabaseConfiguration
	Discovery DiscoveryConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// StoreConfiguration selects the ACL store backend
type StoreConfiguration struct {
	Backend string // memory, redis, or neo4j
}

// CacheConfiguration bounds the client-side ACL cache
type CacheConfiguration struct {
	MaxSize int
	TTL     string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr string
}

// DatabaseConfiguration stores data for Neo4j connection
type DatabaseConfiguration struct {
	URI string
}

// DiscoveryConfiguration maps logical service names to base addresses
type DiscoveryConfiguration struct {
	Services map[string]string
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config")   // path to look for the config file in
	viper.SetConfigName("guardian") // name of the config file (without extension)
	viper.SetConfigType("yaml")     // REQUIRED if the config file does not have the extension in the name

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("cache.maxSize", 10000)
	viper.SetDefault("cache.ttl", "5m")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("discovery.services.authorization", "http://localhost:8080")
	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.duration", "1m")
	viper.SetDefault("log.dir", "")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
