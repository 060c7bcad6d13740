package provisioning

import "path/filepath"

// Fixed locations of the managed service's artifacts. The unit and
// log-rotation policy paths are interfaces to the service manager and
// log-rotation collaborators.
const (
	ServiceName   = "mediaserver"
	UnitPath      = "/etc/systemd/system/" + ServiceName + ".service"
	LogrotatePath = "/etc/logrotate.d/" + ServiceName

	// InstallDirName is the application directory under the service
	// account's home.
	InstallDirName = ServiceName

	// RuntimeDirName holds the Node.js runtime under the home.
	RuntimeDirName = InstallDirName + "-runtime"
)

// Descriptor describes the deployed service's runtime artifacts. It is
// created by the deployer, stored on the run state, and consumed by the
// start, labeling, health and rollback steps. It is rebuilt from
// scratch whenever the service user changes between runs.
type Descriptor struct {
	ServiceName string
	User        string
	Home        string
	InstallDir  string
	RuntimeDir  string
	Entrypoint  string
	NodeBinary  string
	LogPath     string
	Ports       []int

	RestartPolicy string
	RestartSec    int
}

// NewDescriptor derives the artifact layout for the given service user
// and home directory.
func NewDescriptor(user, home, logPath string, ports []int) *Descriptor {
	installDir := filepath.Join(home, InstallDirName)
	runtimeDir := filepath.Join(home, RuntimeDirName)
	return &Descriptor{
		ServiceName:   ServiceName,
		User:          user,
		Home:          home,
		InstallDir:    installDir,
		RuntimeDir:    runtimeDir,
		Entrypoint:    filepath.Join(installDir, "server.js"),
		NodeBinary:    filepath.Join(runtimeDir, "bin", "node"),
		LogPath:       logPath,
		Ports:         append([]int{}, ports...),
		RestartPolicy: "always",
		RestartSec:    5,
	}
}
