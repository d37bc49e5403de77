package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitpull/internal/gitrepo"
)

func TestParseRemoteEndpoint(testInstance *testing.T) {
	testCases := []struct {
		name             string
		remote           string
		expectedEndpoint gitrepo.RemoteEndpoint
		expectError      bool
	}{
		{
			name:   "scp_git_user",
			remote: "git@github.com:example/home-assistant-config.git",
			expectedEndpoint: gitrepo.RemoteEndpoint{
				Protocol: gitrepo.RemoteProtocolSSH,
				User:     "git",
				Host:     "github.com",
				Path:     "example/home-assistant-config.git",
			},
		},
		{
			name:   "scp_custom_user",
			remote: "hass@nas.local:repos/config.git",
			expectedEndpoint: gitrepo.RemoteEndpoint{
				Protocol: gitrepo.RemoteProtocolSSH,
				User:     "hass",
				Host:     "nas.local",
				Path:     "repos/config.git",
			},
		},
		{
			name:   "ssh_scheme_with_port",
			remote: "ssh://git@gitea.local:2222/home/config.git",
			expectedEndpoint: gitrepo.RemoteEndpoint{
				Protocol: gitrepo.RemoteProtocolSSH,
				User:     "git",
				Host:     "gitea.local",
				Port:     "2222",
				Path:     "home/config.git",
			},
		},
		{
			name:   "https",
			remote: "  https://github.com/example/config.git ",
			expectedEndpoint: gitrepo.RemoteEndpoint{
				Protocol: gitrepo.RemoteProtocolHTTPS,
				Host:     "github.com",
				Path:     "example/config.git",
			},
		},
		{
			name:   "http_with_user",
			remote: "http://deploy@git.local:3000/config.git",
			expectedEndpoint: gitrepo.RemoteEndpoint{
				Protocol: gitrepo.RemoteProtocolHTTP,
				User:     "deploy",
				Host:     "git.local",
				Port:     "3000",
				Path:     "config.git",
			},
		},
		{
			name:   "ssh_scheme_default_port",
			remote: "ssh://git@github.com:22/example/config.git",
			expectedEndpoint: gitrepo.RemoteEndpoint{
				Protocol: gitrepo.RemoteProtocolSSH,
				User:     "git",
				Host:     "github.com",
				Path:     "example/config.git",
			},
		},
		{
			name:   "scp_with_port",
			remote: "git@gitea.local:2222:home/config.git",
			expectedEndpoint: gitrepo.RemoteEndpoint{
				Protocol: gitrepo.RemoteProtocolSSH,
				User:     "git",
				Host:     "gitea.local",
				Port:     "2222",
				Path:     "home/config.git",
			},
		},
		{
			name:   "https_default_port",
			remote: "https://github.com:443/example/config.git",
			expectedEndpoint: gitrepo.RemoteEndpoint{
				Protocol: gitrepo.RemoteProtocolHTTPS,
				Host:     "github.com",
				Path:     "example/config.git",
			},
		},
		{name: "empty", remote: "   ", expectError: true},
		{name: "unsupported_scheme", remote: "ftp://example.com/config.git", expectError: true},
		{name: "missing_path", remote: "git@github.com:", expectError: true},
		{name: "local_path", remote: "/srv/git/config.git", expectError: true},
		{name: "git_daemon_scheme", remote: "git://example.com/config.git", expectError: true},
		{name: "scheme_without_path", remote: "https://github.com", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			endpoint, parseError := gitrepo.ParseRemoteEndpoint(testCase.remote)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				require.IsType(testInstance, gitrepo.RemoteURLParseError{}, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedEndpoint, endpoint)
		})
	}
}

func TestRemoteEndpointSSHDestination(testInstance *testing.T) {
	endpoint, parseError := gitrepo.ParseRemoteEndpoint("git@github.com:example/config.git")
	require.NoError(testInstance, parseError)
	require.True(testInstance, endpoint.IsSSH())
	require.Equal(testInstance, "git@github.com", endpoint.SSHDestination())

	hostOnly := gitrepo.RemoteEndpoint{Protocol: gitrepo.RemoteProtocolSSH, Host: "nas.local"}
	require.Equal(testInstance, "git@nas.local", hostOnly.SSHDestination())

	customUser := gitrepo.RemoteEndpoint{Protocol: gitrepo.RemoteProtocolSSH, User: "hass", Host: "nas.local"}
	require.Equal(testInstance, "hass@nas.local", customUser.SSHDestination())
}
