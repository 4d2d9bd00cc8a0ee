package rules

import "smartctlexporter/internal/blockdev"

// airflowAttribute is the ATA attribute reported by WD, Seagate and most
// SATA SSDs for drive temperature.
const airflowAttribute = "Airflow_Temperature_Cel"

// NVMeHealthLog reads nvme_smart_health_information_log.temperature.
var NVMeHealthLog Matcher = NewMatcherFunc("nvme_smart_health_information_log",
	func(_ blockdev.BlockDevice, doc Document) (int64, bool) {
		return doc.Path("nvme_smart_health_information_log", "temperature").Int()
	})

// TemperatureNode reads temperature.current, the unified block smartctl
// emits for SATA and SAS devices.
var TemperatureNode Matcher = NewMatcherFunc("temperature.current",
	func(_ blockdev.BlockDevice, doc Document) (int64, bool) {
		return doc.Path("temperature", "current").Int()
	})

// ATAAirflowTemperature scans ata_smart_attributes.table in the order
// smartctl returned it and reads raw.value of the first
// Airflow_Temperature_Cel entry. Other temperature attributes are not
// considered.
var ATAAirflowTemperature Matcher = NewMatcherFunc("ata_smart_attributes."+airflowAttribute,
	func(_ blockdev.BlockDevice, doc Document) (int64, bool) {
		entry := doc.Path("ata_smart_attributes", "table").Find(func(item Document) bool {
			name, ok := item.Get("name").Str()
			return ok && name == airflowAttribute
		})
		return entry.Path("raw", "value").Int()
	})
