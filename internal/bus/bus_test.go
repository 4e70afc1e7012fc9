package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
)

func setTempCacheDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	return dir
}

func TestPathFunctions(t *testing.T) {
	setTempCacheDir(t)

	t.Run("SockPath", func(t *testing.T) {
		path, err := SockPath()
		if err != nil {
			t.Fatalf("SockPath failed: %v", err)
		}
		if !filepath.IsAbs(path) {
			t.Error("SockPath should return absolute path")
		}
		if filepath.Base(path) != SockName {
			t.Errorf("SockPath should end with %s, got %s", SockName, filepath.Base(path))
		}
	})

	t.Run("PidPath", func(t *testing.T) {
		path, err := PidPath()
		if err != nil {
			t.Fatalf("PidPath failed: %v", err)
		}
		if !filepath.IsAbs(path) {
			t.Error("PidPath should return absolute path")
		}
		if filepath.Base(path) != PidName {
			t.Errorf("PidPath should end with %s, got %s", PidName, filepath.Base(path))
		}
	})
}

func TestPidFileLifecycle(t *testing.T) {
	setTempCacheDir(t)

	t.Run("create and remove", func(t *testing.T) {
		if err := CreatePidFile(); err != nil {
			t.Fatalf("CreatePidFile failed: %v", err)
		}

		pidPath, err := PidPath()
		if err != nil {
			t.Fatalf("PidPath failed: %v", err)
		}

		pidData, err := os.ReadFile(pidPath)
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}
		if string(pidData) != strconv.Itoa(os.Getpid()) {
			t.Errorf("PID file contains %q, expected %d", string(pidData), os.Getpid())
		}

		if err := RemovePidFile(); err != nil {
			t.Fatalf("RemovePidFile failed: %v", err)
		}
		if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
	})

	t.Run("check with no PID file", func(t *testing.T) {
		if err := CheckExistingDaemon(); err != nil {
			t.Errorf("CheckExistingDaemon should succeed with no PID file: %v", err)
		}
	})

	t.Run("check with live process", func(t *testing.T) {
		if err := CreatePidFile(); err != nil {
			t.Fatalf("CreatePidFile failed: %v", err)
		}
		defer RemovePidFile()

		if err := CheckExistingDaemon(); err == nil {
			t.Error("CheckExistingDaemon should fail when the process is alive")
		}
	})

	t.Run("check with dead process", func(t *testing.T) {
		cmd := exec.Command("true")
		if err := cmd.Start(); err != nil {
			t.Skipf("cannot start helper process: %v", err)
		}
		cmd.Wait()

		pidPath, err := PidPath()
		if err != nil {
			t.Fatalf("PidPath failed: %v", err)
		}
		if err := os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)), 0o600); err != nil {
			t.Fatalf("failed to write PID file: %v", err)
		}
		defer os.Remove(pidPath)

		if err := CheckExistingDaemon(); err != nil {
			t.Errorf("CheckExistingDaemon should treat an exited process as stale: %v", err)
		}
	})

	t.Run("check with invalid PID file", func(t *testing.T) {
		pidPath, err := PidPath()
		if err != nil {
			t.Fatalf("PidPath failed: %v", err)
		}
		if err := os.WriteFile(pidPath, []byte("invalid"), 0o600); err != nil {
			t.Fatalf("failed to write PID file: %v", err)
		}
		defer os.Remove(pidPath)

		if err := CheckExistingDaemon(); err != nil {
			t.Errorf("CheckExistingDaemon should treat an invalid PID file as stale: %v", err)
		}
	})
}

func TestSendCommand(t *testing.T) {
	setTempCacheDir(t)

	listener, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()

				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil || len(line) < 1 {
					return
				}

				switch line[0] {
				case 't':
					fmt.Fprint(c, "OK toggled\n")
				case 's':
					fmt.Fprint(c, "STATUS enabled=true sessions=0\n")
				case 'v':
					fmt.Fprintf(c, "STATUS proto=%s\n", ProtoVer)
				case 'q':
					fmt.Fprint(c, "OK quitting\n")
				default:
					fmt.Fprintf(c, "ERR unknown=%q\n", line[0])
				}
			}(conn)
		}
	}()

	tests := []struct {
		cmd      byte
		expected string
	}{
		{'t', "OK toggled\n"},
		{'s', "STATUS enabled=true sessions=0\n"},
		{'v', fmt.Sprintf("STATUS proto=%s\n", ProtoVer)},
		{'q', "OK quitting\n"},
		{'x', "ERR unknown='x'\n"},
	}

	for _, tt := range tests {
		resp, err := SendCommand(tt.cmd)
		if err != nil {
			t.Errorf("SendCommand(%c) failed: %v", tt.cmd, err)
			continue
		}
		if resp != tt.expected {
			t.Errorf("SendCommand(%c) = %q, expected %q", tt.cmd, resp, tt.expected)
		}
	}
}

func TestDialWithoutListener(t *testing.T) {
	setTempCacheDir(t)

	if _, err := Dial(); err == nil {
		t.Error("Dial should fail when no listener exists")
	}
}
