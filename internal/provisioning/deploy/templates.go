package deploy

import (
	"strings"
	"text/template"

	"github.com/streamprov/streamprov/internal/provisioning"
)

// unitTemplate renders the systemd service unit. The service always
// restarts with a fixed backoff and logs to the configured log path.
var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=Media streaming service ({{.ServiceName}})
After=network.target

[Service]
Type=simple
User={{.User}}
WorkingDirectory={{.InstallDir}}
ExecStart={{.NodeBinary}} {{.Entrypoint}}
Restart={{.RestartPolicy}}
RestartSec={{.RestartSec}}
StandardOutput=append:{{.LogPath}}
StandardError=append:{{.LogPath}}

[Install]
WantedBy=multi-user.target
`))

// logrotateTemplate renders the log-rotation policy scoped to the
// service's log path, owned by the service account.
var logrotateTemplate = template.Must(template.New("logrotate").Parse(`{{.LogPath}} {
    size 10M
    rotate 7
    weekly
    missingok
    notifempty
    compress
    delaycompress
    copytruncate
    su {{.User}} {{.User}}
    create 0640 {{.User}} {{.User}}
}
`))

// RenderUnit produces the systemd unit file content for the descriptor.
func RenderUnit(d *provisioning.Descriptor) (string, error) {
	var b strings.Builder
	if err := unitTemplate.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderLogrotate produces the log-rotation policy content for the
// descriptor.
func RenderLogrotate(d *provisioning.Descriptor) (string, error) {
	var b strings.Builder
	if err := logrotateTemplate.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}
