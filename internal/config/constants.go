package config

// Version is the pybind release reported by `pybind version`.
const Version = "0.1.0"

// FileNames are the config file names FindConfig looks for, in order.
var FileNames = []string{"pybind.yaml", "pybind.yml"}

const (
	DefaultPackage  = "bindings"
	DefaultRuntime  = "github.com/funvibe/pybind/pkg/pyrt"
	DefaultOut      = "bindings"
	DefaultCache    = ".pybind/cache.db"
	DefaultManifest = "pybind.manifest.yaml"
	DefaultWorkers  = 4
)

// SourceExt is the extension of Python sources.
const SourceExt = ".py"

// GeneratedSuffix is appended to the module name of generated files.
const GeneratedSuffix = ".pybind.go"

// Off disables the cache or the manifest when used as their path.
const Off = "off"
