package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// snapshot 加载时的配置文件内容, 保护模式下用于恢复
type snapshot struct {
	content []byte
}

// startWatch 注册 fsnotify 回调并启动文件监控。
// 调用方必须已持有 mu 锁
func (c *Config) startWatch() {
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		// 恢复写入自身也会产生事件, 忽略
		if c.restoring.Load() {
			return
		}

		c.mu.RLock()
		watching := c.watching
		protected := c.protected
		onChange := c.onChange
		snapContent := c.snapshotContent()
		c.mu.RUnlock()

		if !watching {
			return
		}

		if protected {
			c.restoreSnapshot(snapContent)
		} else if onChange != nil {
			onChange()
		}
	})
	c.viper.WatchConfig()
	c.watching = true
}

// StartWatch 开启文件监控, 已在监控中时不重复启动
func (c *Config) StartWatch() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watching {
		return nil
	}
	c.startWatch()
	return nil
}

// StopWatch 停止文件监控。
// viper 未提供停止底层 fsnotify watcher 的方法, 这里仅标记状态使回调
// 不再生效, 底层 watcher 在 Config 生命周期内持续运行
func (c *Config) StopWatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watching = false
}

// SetProtected 切换保护模式, 开启时保存当前文件快照
func (c *Config) SetProtected(protected bool) {
	c.mu.Lock()
	c.protected = protected

	var snapErr error
	if protected {
		snapErr = c.saveSnapshot()
	}
	c.mu.Unlock()

	// 释放锁后报告, 避免在锁内调用用户回调
	if snapErr != nil {
		c.reportError(snapErr)
	}
}

// IsProtected 查询是否处于保护模式
func (c *Config) IsProtected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.protected
}

// saveSnapshot 保存当前配置文件快照。
// 调用方必须已持有 mu 锁; 错误返回给调用方在释放锁后报告
func (c *Config) saveSnapshot() error {
	file := c.viper.ConfigFileUsed()
	if file == "" {
		return nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("保存快照失败: %w", err)
	}

	c.snap = &snapshot{content: data}
	return nil
}

// snapshotContent 复制快照内容, 调用方必须持有 mu.RLock
func (c *Config) snapshotContent() []byte {
	if c.snap == nil {
		return nil
	}
	cp := make([]byte, len(c.snap.content))
	copy(cp, c.snap.content)
	return cp
}

// restoreSnapshot 将配置文件恢复为快照内容。
// 先写临时文件再 rename 原子替换, 恢复期间置 restoring 标记抑制二次事件
func (c *Config) restoreSnapshot(content []byte) {
	if content == nil {
		return
	}

	file := c.viper.ConfigFileUsed()
	if file == "" {
		return
	}

	c.restoring.Store(true)
	defer c.restoring.Store(false)

	dir := filepath.Dir(file)
	tmp, err := os.CreateTemp(dir, ".config-restore-*")
	if err != nil {
		c.reportError(fmt.Errorf("创建临时文件失败: %w", err))
		return
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		c.reportError(fmt.Errorf("写入临时文件失败: %w", err))
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		c.reportError(fmt.Errorf("关闭临时文件失败: %w", err))
		return
	}

	if err := os.Rename(tmpName, file); err != nil {
		os.Remove(tmpName)
		c.reportError(fmt.Errorf("恢复配置文件失败: %w", err))
		return
	}

	// 恢复后重新读取, 保证内存状态与文件一致
	c.mu.Lock()
	err = c.viper.ReadInConfig()
	c.mu.Unlock()
	if err != nil {
		c.reportError(fmt.Errorf("恢复后重新加载配置失败: %w", err))
	}
}

// reportError 优先走 onError 回调, 未设置时输出到 stderr
func (c *Config) reportError(err error) {
	c.mu.RLock()
	onError := c.onError
	c.mu.RUnlock()

	if onError != nil {
		onError(err)
	} else {
		fmt.Fprintf(os.Stderr, "[config] %v\n", err)
	}
}
