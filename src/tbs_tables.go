package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Transport block size tables for deriving the downlink
 *		MCS index.
 *
 * Description:	DL transport block records carry TBS and PRB count but
 *		no MCS, so we run TS 36.213 table 7.1.7.2.1-1 backwards:
 *		the bandwidth picks a column, the nearest TBS entry in
 *		that column gives I_TBS (ties go to the lower index),
 *		and table 7.1.7.1-1 maps I_TBS to the lowest MCS that
 *		produces it.  Only the six standard LTE bandwidths are
 *		carried; carrier aggregation is out of scope.
 *
 *---------------------------------------------------------------*/

// Columns for N_PRB 6, 15, 25, 50, 75, 100; rows are I_TBS 0-26.
// Values in bits.
var lte_tbs_table = [27][6]int{
	{152, 392, 680, 1384, 2088, 2792},
	{208, 520, 904, 1800, 2728, 3624},
	{256, 648, 1096, 2216, 3368, 4584},
	{328, 872, 1416, 2856, 4392, 5736},
	{408, 1064, 1800, 3624, 5352, 7224},
	{504, 1320, 2216, 4392, 6712, 8760},
	{600, 1544, 2600, 5160, 7736, 10296},
	{712, 1800, 3112, 6200, 9144, 12216},
	{808, 2024, 3496, 6968, 10680, 14112},
	{936, 2280, 4008, 7992, 11832, 15840},
	{1032, 2536, 4392, 8760, 12960, 17568},
	{1192, 2856, 4968, 9912, 14688, 19848},
	{1352, 3240, 5736, 11448, 16992, 22920},
	{1544, 3624, 6456, 12960, 19080, 25456},
	{1736, 4136, 7224, 14112, 21384, 28336},
	{1800, 4392, 7736, 15264, 22920, 30576},
	{1928, 4584, 7992, 16416, 24496, 32856},
	{2152, 5160, 9144, 18336, 27376, 36696},
	{2344, 5736, 9912, 19848, 29296, 39232},
	{2600, 6200, 10680, 21384, 32856, 43816},
	{2792, 6712, 11448, 22920, 35160, 46888},
	{2984, 7224, 12576, 25456, 37888, 51024},
	{3240, 7736, 13536, 27376, 40576, 55056},
	{3496, 8248, 14112, 28336, 43816, 57336},
	{3624, 8504, 14688, 30576, 45352, 61664},
	{3752, 9144, 15264, 31704, 46888, 63776},
	{4392, 9912, 16416, 36696, 55056, 75376},
}

var lte_prb_columns = [6]int{6, 15, 25, 50, 75, 100}

// Lowest MCS producing each I_TBS (TS 36.213 table 7.1.7.1-1).
// I_TBS 10-15 are reachable at both 16QAM and 64QAM; the 16QAM
// entry is the lower MCS and wins.
var lte_itbs_to_mcs = [27]int{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9,
	11, 12, 13, 14, 15, 16,
	18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28,
}

var lte_prb_to_mhz = map[int]float64{
	6:   1.4,
	15:  3,
	25:  5,
	50:  10,
	75:  15,
	100: 20,
}

var lte_mhz_to_prb = map[float64]int{
	1.4: 6,
	3:   15,
	5:   25,
	10:  50,
	15:  75,
	20:  100,
}

// bandwidth_label formats a PRB count the way the console lines show
// bandwidth: "1.4MHz", "10MHz".
func bandwidth_label(n_prb int) string {
	switch n_prb {
	case 6:
		return "1.4MHz"
	case 15:
		return "3MHz"
	case 25:
		return "5MHz"
	case 50:
		return "10MHz"
	case 75:
		return "15MHz"
	case 100:
		return "20MHz"
	}
	return ""
}

func bandwidth_mhz(n_prb int) float64 {
	return lte_prb_to_mhz[n_prb]
}

/*-------------------------------------------------------------------
 *
 * Name:        mcs_from_tbs
 *
 * Purpose:     Derive the DL MCS index from TBS bits and bandwidth.
 *
 * Inputs:	tbs_bits - Transport block size in bits.
 *		n_prb	 - Bandwidth as PRB count, one of 6, 15, 25,
 *			   50, 75, 100.
 *
 * Returns:	MCS 0-28 and true, or 0 and false when the bandwidth
 *		is not a standard one.
 *
 *-----------------------------------------------------------------*/

func mcs_from_tbs(tbs_bits int, n_prb int) (int, bool) {
	var col = -1
	for i, prb := range lte_prb_columns {
		if prb == n_prb {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, false
	}

	var best_itbs = 0
	var best_dist = -1
	for itbs := 0; itbs < len(lte_tbs_table); itbs++ {
		var dist = tbs_bits - lte_tbs_table[itbs][col]
		if dist < 0 {
			dist = -dist
		}
		// Strict improvement only, so a tie keeps the lower index.
		if best_dist < 0 || dist < best_dist {
			best_itbs = itbs
			best_dist = dist
		}
	}
	return lte_itbs_to_mcs[best_itbs], true
}
