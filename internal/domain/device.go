package domain

import "github.com/samber/lo"

// DeviceInfo describes the host device. It is collected by the platform layer
// and handed to the SDK as plain values.
type DeviceInfo struct {
	ClientSDK          string `mapstructure:"client_sdk" yaml:"client_sdk"`
	DeviceUniqueID     string `mapstructure:"device_unique_id" yaml:"device_unique_id"`
	HardwareID         string `mapstructure:"hardware_id" yaml:"hardware_id"`
	NetworkAdapterID   string `mapstructure:"network_adapter_id" yaml:"network_adapter_id"`
	AppDisplayName     string `mapstructure:"app_display_name" yaml:"app_display_name"`
	AppName            string `mapstructure:"app_name" yaml:"app_name"`
	AppVersion         string `mapstructure:"app_version" yaml:"app_version"`
	AppPublisher       string `mapstructure:"app_publisher" yaml:"app_publisher"`
	AppAuthor          string `mapstructure:"app_author" yaml:"app_author"`
	DeviceType         string `mapstructure:"device_type" yaml:"device_type"`
	DeviceName         string `mapstructure:"device_name" yaml:"device_name"`
	DeviceManufacturer string `mapstructure:"device_manufacturer" yaml:"device_manufacturer"`
	Architecture       string `mapstructure:"architecture" yaml:"architecture"`
	OSName             string `mapstructure:"os_name" yaml:"os_name"`
	OSVersion          string `mapstructure:"os_version" yaml:"os_version"`
	Language           string `mapstructure:"language" yaml:"language"`
	Country            string `mapstructure:"country" yaml:"country"`
}

// Parameters returns the non-empty device attributes keyed by parameter name.
func (d DeviceInfo) Parameters() map[string]string {
	all := map[string]string{
		"device_unique_id":    d.DeviceUniqueID,
		"hardware_id":         d.HardwareID,
		"network_adapter_id":  d.NetworkAdapterID,
		"app_display_name":    d.AppDisplayName,
		"app_name":            d.AppName,
		"app_version":         d.AppVersion,
		"app_publisher":       d.AppPublisher,
		"app_author":          d.AppAuthor,
		"device_type":         d.DeviceType,
		"device_name":         d.DeviceName,
		"device_manufacturer": d.DeviceManufacturer,
		"architecture":        d.Architecture,
		"os_name":             d.OSName,
		"os_version":          d.OSVersion,
		"language":            d.Language,
		"country":             d.Country,
	}
	return lo.PickBy(all, func(_ string, v string) bool { return v != "" })
}

// DeviceID returns the most stable identifier available.
func (d DeviceInfo) DeviceID() string {
	return lo.CoalesceOrEmpty(d.DeviceUniqueID, d.HardwareID, d.NetworkAdapterID)
}
