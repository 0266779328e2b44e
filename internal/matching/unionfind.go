/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package matching

// unionFind is a disjoint-set forest over normalized keys. Keys start as
// singleton clusters; union by rank with path compression.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind(keys []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(keys)),
		rank:   make(map[string]int, len(keys)),
	}
	for _, k := range keys {
		uf.parent[k] = k
	}
	return uf
}

func (uf *unionFind) find(key string) string {
	root := key
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[key] != root {
		key, uf.parent[key] = uf.parent[key], root
	}
	return root
}

func (uf *unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// clusters groups every key under its root and returns root -> members.
func (uf *unionFind) clusters() map[string][]string {
	out := make(map[string][]string)
	for key := range uf.parent {
		root := uf.find(key)
		out[root] = append(out[root], key)
	}
	return out
}
