// Package config provides configuration structures and loading for cuackproxy.
// Defaults reproduce the fixed values the tool has always used (SOCKS on
// 127.0.0.1:9050, control port 9051, fernet_key.key and error_log.txt in the
// working directory); a YAML file can override any of them.
package config
