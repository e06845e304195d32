/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	v := New(1, 2, 3)
	assert.Equal(t, "1.2.3", v.String())
	assert.Equal(t, "1.2.3", v.FullString())

	v.Build = "rc1"
	assert.Equal(t, "1.2.3-rc1", v.FullString())

	assert.Equal(t, []byte{1, 2, 3}, v.Slice())
	assert.True(t, NewFromSlice(v.Slice()).Compatible(v))
	assert.False(t, NewFromSlice(v.Slice()).Equal(v))
	assert.False(t, v.Compatible(New(1, 3, 0)))
}

func TestBanner(t *testing.T) {
	defer func(h string) { Hash = h }(Hash)

	Hash = ""
	assert.Equal(t, "i8086 "+Current.FullString(), Banner("i8086"))

	Hash = "f9206956dd0ea3883b48b3e83de11ff24cee7889"
	assert.Equal(t, "i8086 "+Current.FullString()+" (f920695)", Banner("i8086"))
}
