package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ChainEcho/internal/config"
	"ChainEcho/internal/insight"
	"ChainEcho/internal/insight/ethereum"
)

// defaultExplorers 是最常见链的区块浏览器地址，链配置可以覆盖它。
var defaultExplorers = map[string]string{
	"ethereum":  "https://etherscan.io/tx/",
	"base":      "https://basescan.org/tx/",
	"polygon":   "https://polygonscan.com/tx/",
	"arbitrum":  "https://arbiscan.io/tx/",
	"optimism":  "https://optimistic.etherscan.io/tx/",
	"avalanche": "https://snowtrace.io/tx/",
	"bsc":       "https://bscscan.com/tx/",
	"fantom":    "https://ftmscan.com/tx/",
	"gnosis":    "https://gnosisscan.io/tx/",
	"sepolia":   "https://sepolia.etherscan.io/tx/",
}

// Registry manages a set of chain clients keyed by human readable names.
type Registry struct {
	defaultChain string
	clients      map[string]insight.Client
	aliases      map[string]string
	explorers    map[string]string
}

// NewRegistry loads chain definitions and instantiates concrete clients.
func NewRegistry(ctx context.Context, cfg config.InsightConfig) (*Registry, error) {
	defs, err := insight.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}

	registry := &Registry{
		clients:   make(map[string]insight.Client),
		aliases:   make(map[string]string),
		explorers: make(map[string]string),
	}

	for name, chain := range defs.Chains {
		name = strings.ToLower(strings.TrimSpace(name))
		chainType := strings.ToLower(strings.TrimSpace(chain.Type))
		if chainType == "" {
			chainType = "evm"
		}
		switch chainType {
		case "evm":
			client, err := ethereum.NewClient(ctx, ethereum.Config{
				Name:   name,
				RPCURL: chain.RPCURL,
				Notes:  chain.Description,
			})
			if err != nil {
				return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
			}
			registry.clients[name] = client
		default:
			return nil, fmt.Errorf("链 %s 使用了不支持的类型 %s", name, chain.Type)
		}
		for _, alias := range chain.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias != "" {
				registry.aliases[alias] = name
			}
		}
		if explorer := strings.TrimSpace(chain.ExplorerTxURL); explorer != "" {
			registry.explorers[name] = explorer
		}
	}

	if len(registry.clients) == 0 && strings.TrimSpace(cfg.RPCURL) != "" {
		client, err := ethereum.NewClient(ctx, ethereum.Config{Name: "ethereum", RPCURL: cfg.RPCURL})
		if err != nil {
			return nil, err
		}
		registry.clients["ethereum"] = client
		if cfg.DefaultChain == "" {
			cfg.DefaultChain = "ethereum"
		}
	}

	if len(registry.clients) == 0 {
		return nil, errors.New("未配置任何链的 RPC 端点")
	}

	defaultChain := strings.ToLower(strings.TrimSpace(cfg.DefaultChain))
	if defaultChain == "" {
		names := registry.Chains()
		defaultChain = names[0]
	}
	if _, ok := registry.clients[defaultChain]; !ok {
		return nil, fmt.Errorf("默认链 %s 未在配置中找到", defaultChain)
	}
	registry.defaultChain = defaultChain

	return registry, nil
}

// NewRegistryWithClients 直接注入链客户端，主要用于测试。
func NewRegistryWithClients(defaultChain string, clients map[string]insight.Client, aliases map[string]string) (*Registry, error) {
	if len(clients) == 0 {
		return nil, errors.New("至少需要一个链客户端")
	}
	if _, ok := clients[defaultChain]; !ok {
		return nil, fmt.Errorf("默认链 %s 未在注入的客户端中", defaultChain)
	}
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &Registry{
		defaultChain: defaultChain,
		clients:      clients,
		aliases:      aliases,
		explorers:    map[string]string{},
	}, nil
}

// DefaultChain returns the name of the default chain.
func (r *Registry) DefaultChain() string {
	if r == nil {
		return ""
	}
	return r.defaultChain
}

// DefaultClient returns the client configured as default chain.
func (r *Registry) DefaultClient() (insight.Client, error) {
	if r == nil {
		return nil, errors.New("未初始化的链客户端注册表")
	}
	client, ok := r.clients[r.defaultChain]
	if !ok {
		return nil, fmt.Errorf("默认链 %s 未在注册表中", r.defaultChain)
	}
	return client, nil
}

// Client returns the chain client identified by name or alias.
func (r *Registry) Client(name string) (insight.Client, bool) {
	if r == nil {
		return nil, false
	}
	name = r.canonical(name)
	client, ok := r.clients[name]
	return client, ok
}

// MatchChain 在自然语言文本中查找链名称或别名，找不到时返回默认链。
func (r *Registry) MatchChain(text string) string {
	if r == nil {
		return ""
	}
	lowered := strings.ToLower(text)
	names := r.Chains()
	for _, name := range names {
		if containsWord(lowered, name) {
			return name
		}
	}
	aliases := make([]string, 0, len(r.aliases))
	for alias := range r.aliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		if containsWord(lowered, alias) {
			return r.aliases[alias]
		}
	}
	return r.defaultChain
}

// ExplorerTxURL 返回指定链上交易的区块浏览器链接。
func (r *Registry) ExplorerTxURL(chain, hash string) string {
	chain = r.canonical(chain)
	if r != nil {
		if base, ok := r.explorers[chain]; ok {
			return base + hash
		}
	}
	if base, ok := defaultExplorers[chain]; ok {
		return base + hash
	}
	return defaultExplorers["ethereum"] + hash
}

// Chains returns the sorted list of registered chain names.
func (r *Registry) Chains() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}

func (r *Registry) canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if r == nil {
		return name
	}
	if canonical, ok := r.aliases[name]; ok {
		return canonical
	}
	return name
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isAlnum(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isAlnum(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
