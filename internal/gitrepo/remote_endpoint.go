package gitrepo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

const (
	sshSchemeConstant                   = "ssh"
	httpsSchemeConstant                 = "https"
	httpSchemeConstant                  = "http"
	scpUserDelimiterConstant            = "@"
	pathSeparatorConstant               = "/"
	defaultSSHUserConstant              = "git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	requiredValueMessageConstant        = "remote url is required"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	unsupportedProtocolMessageConstant  = "unsupported remote protocol"
)

// RemoteProtocol enumerates supported git remote transports.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol(sshSchemeConstant)
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol(httpsSchemeConstant)
	RemoteProtocolHTTP  RemoteProtocol = RemoteProtocol(httpSchemeConstant)
)

var defaultProtocolPorts = map[RemoteProtocol]int{
	RemoteProtocolSSH:   22,
	RemoteProtocolHTTPS: 443,
	RemoteProtocolHTTP:  80,
}

// RemoteEndpoint is the parsed form of a git remote URL. Port is empty when
// the remote uses the protocol's default port.
type RemoteEndpoint struct {
	Protocol RemoteProtocol
	User     string
	Host     string
	Port     string
	Path     string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteEndpoint accepts scp-like SSH remotes (git@host:owner/repo.git),
// ssh:// URLs with an optional port, and http(s) URLs. Local paths and other
// transports are rejected.
func ParseRemoteEndpoint(remote string) (RemoteEndpoint, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteEndpoint{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	transportEndpoint, endpointError := transport.NewEndpoint(trimmedRemote)
	if endpointError != nil {
		return RemoteEndpoint{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}

	protocol := RemoteProtocol(strings.ToLower(transportEndpoint.Protocol))
	defaultPort, supported := defaultProtocolPorts[protocol]
	if !supported {
		return RemoteEndpoint{}, RemoteURLParseError{Input: remote, Message: unsupportedProtocolMessageConstant}
	}

	endpoint := RemoteEndpoint{
		Protocol: protocol,
		User:     transportEndpoint.User,
		Host:     transportEndpoint.Host,
		Path:     strings.TrimPrefix(transportEndpoint.Path, pathSeparatorConstant),
	}
	if transportEndpoint.Port != 0 && transportEndpoint.Port != defaultPort {
		endpoint.Port = strconv.Itoa(transportEndpoint.Port)
	}
	if len(endpoint.Host) == 0 || len(endpoint.Path) == 0 || strings.Contains(endpoint.Host, pathSeparatorConstant) {
		return RemoteEndpoint{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return endpoint, nil
}

// SSHDestination renders the user@host target used for ssh connectivity
// checks. Remotes without a user connect as git.
func (endpoint RemoteEndpoint) SSHDestination() string {
	user := endpoint.User
	if len(user) == 0 {
		user = defaultSSHUserConstant
	}
	return user + scpUserDelimiterConstant + endpoint.Host
}

// IsSSH reports whether the endpoint is reached over SSH.
func (endpoint RemoteEndpoint) IsSSH() bool {
	return endpoint.Protocol == RemoteProtocolSSH
}
