package tsparse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopetest-dev/scopetest/internal/model"
)

func parse(t *testing.T, path, source string) *ParseResult {
	t.Helper()
	p := NewTreeSitterParser()
	defer p.Close()
	result, err := p.Parse(context.Background(), path, []byte(source))
	require.NoError(t, err)
	return result
}

func TestParseStaticImportForms(t *testing.T) {
	src := `
import Default from './a';
import { named } from './b';
import * as ns from './c';
import './side-effect';
`
	result := parse(t, "src/index.ts", src)
	require.Len(t, result.Imports, 4)
	for _, imp := range result.Imports {
		assert.Equal(t, model.KindStatic, imp.Kind)
	}
	assert.Equal(t, "./a", result.Imports[0].Specifier)
	assert.Equal(t, "./side-effect", result.Imports[3].Specifier)
}

func TestParseTypeOnlyImport(t *testing.T) {
	src := `import type { Foo } from './types';`
	result := parse(t, "src/index.ts", src)
	require.Len(t, result.Imports, 1)
	assert.Equal(t, model.KindTypeOnly, result.Imports[0].Kind)
}

func TestParseReExports(t *testing.T) {
	src := `
export * from './a';
export { x, y } from './b';
export type { T } from './c';
`
	result := parse(t, "src/index.ts", src)
	require.Len(t, result.Imports, 3)
	assert.Equal(t, model.KindReExportAll, result.Imports[0].Kind)
	assert.Equal(t, model.KindReExportNamed, result.Imports[1].Kind)
	assert.Equal(t, model.KindTypeOnly, result.Imports[2].Kind)
}

func TestParseDynamicAndRequire(t *testing.T) {
	src := `
const a = require('./a');
const b = import('./b');
const c = require(pathVar);
`
	result := parse(t, "src/index.ts", src)
	require.Len(t, result.Imports, 3)
	assert.Equal(t, model.KindRequire, result.Imports[0].Kind)
	assert.Equal(t, "./a", result.Imports[0].Specifier)
	assert.Equal(t, model.KindDynamic, result.Imports[1].Kind)
	assert.Equal(t, "./b", result.Imports[1].Specifier)
	assert.True(t, result.Imports[2].NonLiteral)
	assert.Equal(t, "", result.Imports[2].Specifier)
}

func TestParseBarrelFileHeuristic(t *testing.T) {
	barrel := parse(t, "src/index.ts", `
export * from './a';
export { b } from './b';
`)
	assert.True(t, barrel.IsBarrel)

	notBarrel := parse(t, "src/index.ts", `
export * from './a';
export function helper() {}
`)
	assert.False(t, notBarrel.IsBarrel)
}

func TestParseSyntaxErrorRecorded(t *testing.T) {
	result := parse(t, "src/broken.ts", `import { from './a';`)
	assert.Equal(t, model.ParseSyntaxError, result.ParseStatus)
}

func TestParseTSXExtensionUsesTSXGrammar(t *testing.T) {
	src := `
import React from 'react';
export function App() { return <div>{1}</div>; }
`
	result := parse(t, "src/App.tsx", src)
	assert.Equal(t, model.ParseOk, result.ParseStatus)
	require.Len(t, result.Imports, 1)
	assert.Equal(t, "react", result.Imports[0].Specifier)
}
