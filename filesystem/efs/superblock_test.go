package efs

import "testing"

func TestLocateInodeScenario(t *testing.T) {
	sb := &superblock{firstCG: 121, cgFSize: 25593, cgISize: 656}
	diskBB, slot := sb.locateInode(2)
	if diskBB != 121 || slot != 2 {
		t.Errorf("locateInode(2) = (%d, %d), want (121, 2)", diskBB, slot)
	}
}
