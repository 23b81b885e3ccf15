package retrieval

import (
	"context"
	"fmt"

	"github.com/ariesstack/aries-engine/internal/models"
)

// SeedDocuments installs the base troubleshooting corpus. Documents already
// present keep their stored content, so operator edits survive restarts.
func SeedDocuments(ctx context.Context, s *Store) error {
	base := []models.Document{
		{
			ID:       "linux_commands",
			Type:     "knowledge",
			Category: "linux",
			Content: "Common Linux commands: ls, cd, pwd, mkdir, rm, cp, mv, cat, grep, find, " +
				"chmod, chown, ps (process status), top (resource usage), kill, df (disk usage), " +
				"du (directory sizes), free (memory usage), ip addr (network config), ping, ssh, scp, " +
				"tar, gzip, systemctl (service management), journalctl (system logs).",
		},
		{
			ID:       "nginx_troubleshooting",
			Type:     "knowledge",
			Category: "web_server",
			Content: "Nginx troubleshooting: check the unit with systemctl status nginx; validate " +
				"config syntax with nginx -t; inspect /var/log/nginx/error.log; check port usage with " +
				"netstat -tulpn | grep 80; review firewall rules with iptables -L; restart with " +
				"systemctl restart nginx. Common causes: permission errors, config syntax errors, " +
				"port conflicts, bad file paths, SSL certificate problems.",
		},
		{
			ID:       "mysql_troubleshooting",
			Type:     "knowledge",
			Category: "database",
			Content: "MySQL troubleshooting: check the unit with systemctl status mysql; inspect " +
				"/var/log/mysql/error.log; test connectivity with mysql -u root -p; inspect load with " +
				"SHOW PROCESSLIST; verify tables with CHECK TABLE and repair with REPAIR TABLE; check " +
				"disk space with df -h; restart with systemctl restart mysql. Common causes: refused " +
				"connections, permission problems, corrupt tables, full disks, memory exhaustion, " +
				"query timeouts.",
		},
		{
			ID:       "kubernetes_commands",
			Type:     "knowledge",
			Category: "kubernetes",
			Content: "Kubernetes operations: kubectl get pods/nodes/deployments/services; " +
				"kubectl describe pod NAME; kubectl logs NAME; kubectl exec -it NAME -- /bin/bash; " +
				"kubectl apply -f FILE; kubectl delete pod NAME; kubectl scale deployment NAME " +
				"--replicas=N; kubectl rollout status deployment/NAME; kubectl rollout undo " +
				"deployment/NAME.",
		},
		{
			ID:       "network_troubleshooting",
			Type:     "knowledge",
			Category: "network",
			Content: "Network troubleshooting: test reachability with ping and traceroute; check DNS " +
				"with nslookup or dig; probe ports with nc; inspect interfaces with ip addr; check the " +
				"routing table with ip route; review firewall rules with iptables -L; capture traffic " +
				"with tcpdump; list listening services with netstat -tulpn. Common causes: DNS failure, " +
				"routing errors, firewall drops, interface misconfiguration, IP conflicts, congestion.",
		},
		{
			ID:       "disk_troubleshooting",
			Type:     "knowledge",
			Category: "storage",
			Content: "Disk troubleshooting: check usage with df -h and df -i for inodes; check IO with " +
				"iostat; verify filesystems with fsck; check drive health with smartctl -a; locate " +
				"large trees with du -sh /*; truncate rotated logs with find /var/log -type f -name " +
				`"*.log" -exec truncate -s 0 {} \;; clear /tmp and package caches. Common causes: ` +
				"full disks, exhausted inodes, IO saturation, hardware faults, filesystem corruption.",
		},
		{
			ID:       "performance_troubleshooting",
			Type:     "knowledge",
			Category: "performance",
			Content: "Performance troubleshooting: check CPU with top and mpstat; memory with free and " +
				"vmstat; load with uptime; per-process usage with ps aux; system calls with strace; " +
				"disk IO with iotop; system logs with journalctl. Common causes: CPU saturation, " +
				"memory leaks, IO bottlenecks, network bottlenecks, application bugs, lock contention.",
		},
	}

	existing := make(map[string]struct{})
	for _, d := range s.GetAllDocuments() {
		existing[d.ID] = struct{}{}
	}

	for _, d := range base {
		if _, ok := existing[d.ID]; ok {
			continue
		}
		if err := s.AddDocument(ctx, d); err != nil {
			return fmt.Errorf("seed document %s: %w", d.ID, err)
		}
	}
	return nil
}
